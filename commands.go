package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Saraahamrr/bulk-shipping-platform/internal/label"
	"github.com/Saraahamrr/bulk-shipping-platform/internal/session"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/backend"
	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/spf13/cobra"
)

var (
	flagUsername string
	flagPassword string
	flagEmail    string

	flagWatch       bool
	flagLabelFormat string
	flagLabelsOut   string
	flagPurchaseOut string
	flagAcceptTerms bool

	flagService string
	flagLbs     int
	flagOz      int
	flagLength  float64
	flagWidth   float64
	flagHeight  float64
	flagOrderNo string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the backend",
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and store the session tokens",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and clear local state",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated user and balance",
	RunE:  runWhoami,
}

var templateCmd = &cobra.Command{
	Use:   "template [output-file]",
	Short: "Download the CSV upload template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplate,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <csv-file-or-directory>",
	Short: "Upload a shipment CSV, or watch a directory for CSVs with --watch",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the working shipment records",
	RunE:  runRecordsList,
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsShow,
}

var recordsEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit one record's service, weight, dimensions, or order number",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordsEdit,
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecordsDelete,
}

var recordsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record",
	RunE:  runRecordsClear,
}

var assignCmd = &cobra.Command{
	Use:   "assign <ground|priority> [id...]",
	Short: "Assign a shipping service (all records when no ids are given)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAssign,
}

var applyAddressCmd = &cobra.Command{
	Use:   "apply-address <saved-name> [id...]",
	Short: "Copy a saved ship-from address into records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runApplyAddress,
}

var applyPackageCmd = &cobra.Command{
	Use:   "apply-package <saved-name> [id...]",
	Short: "Copy a saved package preset into records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runApplyPackage,
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Purchase labels for the working records",
	RunE:  runPurchase,
}

var labelsCmd = &cobra.Command{
	Use:   "labels [id...]",
	Short: "Render a PDF of labels for the given records (all when omitted)",
	RunE:  runLabels,
}

func init() {
	registerCmd.Flags().StringVar(&flagUsername, "username", "", "account username")
	registerCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&flagPassword, "password", "", "account password")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringVar(&flagUsername, "username", "", "account username")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "account password")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")

	uploadCmd.Flags().BoolVar(&flagWatch, "watch", false, "watch a directory and upload new CSV files as they appear")

	recordsEditCmd.Flags().StringVar(&flagService, "service", "", "shipping service (ground or priority)")
	recordsEditCmd.Flags().IntVar(&flagLbs, "lbs", -1, "weight pounds")
	recordsEditCmd.Flags().IntVar(&flagOz, "oz", -1, "weight ounces")
	recordsEditCmd.Flags().Float64Var(&flagLength, "length", 0, "length in inches")
	recordsEditCmd.Flags().Float64Var(&flagWidth, "width", 0, "width in inches")
	recordsEditCmd.Flags().Float64Var(&flagHeight, "height", 0, "height in inches")
	recordsEditCmd.Flags().StringVar(&flagOrderNo, "order-no", "", "order number")

	purchaseCmd.Flags().StringVar(&flagLabelFormat, "format", "", "label format: letter, a4 or 4x6")
	purchaseCmd.Flags().StringVar(&flagPurchaseOut, "out", "", "write a label PDF here after purchase")
	purchaseCmd.Flags().BoolVar(&flagAcceptTerms, "accept-terms", false, "accept the terms of service")

	labelsCmd.Flags().StringVar(&flagLabelFormat, "format", "", "label format: letter, a4 or 4x6")
	labelsCmd.Flags().StringVar(&flagLabelsOut, "out", "labels.pdf", "output PDF path")

	recordsCmd.AddCommand(recordsShowCmd, recordsEditCmd, recordsDeleteCmd, recordsClearCmd)
	rootCmd.AddCommand(
		registerCmd, loginCmd, logoutCmd, whoamiCmd,
		templateCmd, uploadCmd, recordsCmd, assignCmd,
		applyAddressCmd, applyPackageCmd, purchaseCmd, labelsCmd,
	)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid record id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// allIDs falls back to every loaded record when the command got no explicit
// ids.
func allIDs(a *app, args []string) ([]int64, error) {
	if len(args) > 0 {
		return parseIDs(args)
	}
	records := a.coord.Store().Records()
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.client.Register(cmd.Context(), backend.RegisterRequest{
		Username: flagUsername,
		Email:    flagEmail,
		Password: flagPassword,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s)\n", profile.Username, profile.Email)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.coord.Login(cmd.Context(), flagUsername, flagPassword)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s, balance %s\n", profile.Username, profile.AccountBalance)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.Logout(cmd.Context()); err != nil {
		fmt.Fprintf(os.Stderr, "Remote logout failed (%v); local session cleared\n", err)
		return nil
	}
	fmt.Println("Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.client.Profile(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>  balance %s\n", profile.Username, profile.Email, profile.AccountBalance)
	return nil
}

func runTemplate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.client.Template(cmd.Context())
	if err != nil {
		return err
	}
	out := "shipping_template.csv"
	if len(args) == 1 {
		out = args[0]
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if flagWatch {
		return watchAndUpload(cmd.Context(), a, args[0])
	}
	return uploadFile(cmd.Context(), a, args[0])
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	store := a.coord.Store()
	records := store.Records()
	if len(records) == 0 {
		fmt.Println("No records loaded. Upload a CSV first.")
		return nil
	}
	for _, r := range records {
		service := r.ShippingService
		if service == "" {
			service = "-"
		}
		fmt.Printf("%5d  %-12s  %-30s  %-8s  %8s  %s\n",
			r.ID, r.OrderNo, truncate(r.ToAddressFormatted, 30), service,
			r.ShippingPrice, r.Status)
	}
	fmt.Printf("\n%d records, total %s (step: %s)\n", len(records), store.Total(), store.Step())
	return nil
}

func runRecordsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	record, err := a.client.GetShipment(cmd.Context(), ids[0])
	if err != nil {
		return err
	}
	fmt.Printf("Record %d (%s)\n", record.ID, record.OrderNo)
	fmt.Printf("  From:    %s\n", record.FromAddressFormatted)
	fmt.Printf("  To:      %s\n", record.ToAddressFormatted)
	fmt.Printf("  Package: %s\n", record.PackageDetails)
	fmt.Printf("  Service: %s  Price: %s  Status: %s\n",
		record.ShippingService, record.ShippingPrice, record.Status)
	if record.ItemSKU != "" {
		fmt.Printf("  SKU:     %s\n", record.ItemSKU)
	}
	return nil
}

func runRecordsEdit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	var patch shipment.Patch
	if cmd.Flags().Changed("service") {
		patch.ShippingService = &flagService
	}
	if cmd.Flags().Changed("lbs") {
		patch.WeightLbs = &flagLbs
	}
	if cmd.Flags().Changed("oz") {
		patch.WeightOz = &flagOz
	}
	if cmd.Flags().Changed("length") {
		patch.Length = &flagLength
	}
	if cmd.Flags().Changed("width") {
		patch.Width = &flagWidth
	}
	if cmd.Flags().Changed("height") {
		patch.Height = &flagHeight
	}
	if cmd.Flags().Changed("order-no") {
		patch.OrderNo = &flagOrderNo
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change; pass at least one field flag")
	}

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	record, err := a.coord.UpdateRecord(cmd.Context(), ids[0], patch)
	if err != nil {
		return err
	}
	fmt.Printf("Updated record %d: %s %s\n", record.ID, record.ShippingService, record.ShippingPrice)
	return nil
}

func runRecordsDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	if len(ids) == 1 {
		if err := a.coord.DeleteRecord(cmd.Context(), ids[0]); err != nil {
			return err
		}
	} else if err := a.coord.BulkDelete(cmd.Context(), ids); err != nil {
		return err
	}
	fmt.Printf("Deleted %d record(s)\n", len(ids))
	return nil
}

func runRecordsClear(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.DeleteAll(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Deleted all records")
	return nil
}

func runAssign(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	service := strings.ToLower(args[0])
	if service != shipment.ServiceGround && service != shipment.ServicePriority {
		return fmt.Errorf("unknown service %q (want ground or priority)", args[0])
	}

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	ids, err := allIDs(a, args[1:])
	if err != nil {
		return err
	}
	updated, err := a.coord.BulkAssignService(cmd.Context(), ids, service)
	if err != nil {
		return err
	}
	fmt.Printf("Assigned %s to %d record(s), total now %s\n",
		service, len(updated), a.coord.Store().Total())
	return nil
}

func runApplyAddress(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	var addr *shipment.SavedAddress
	for _, candidate := range a.coord.Store().Addresses() {
		if candidate.Name == args[0] {
			addr = &candidate
			break
		}
	}
	if addr == nil {
		return fmt.Errorf("no saved address named %q", args[0])
	}
	ids, err := allIDs(a, args[1:])
	if err != nil {
		return err
	}
	updated, err := a.coord.ApplyAddress(cmd.Context(), *addr, ids)
	if err != nil {
		return err
	}
	fmt.Printf("Applied address %q to %d record(s)\n", addr.Name, len(updated))
	return nil
}

func runApplyPackage(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	var pkg *shipment.SavedPackage
	for _, candidate := range a.coord.Store().Packages() {
		if candidate.Name == args[0] {
			pkg = &candidate
			break
		}
	}
	if pkg == nil {
		return fmt.Errorf("no saved package named %q", args[0])
	}
	ids, err := allIDs(a, args[1:])
	if err != nil {
		return err
	}
	updated, err := a.coord.ApplyPackage(cmd.Context(), *pkg, ids)
	if err != nil {
		return err
	}
	fmt.Printf("Applied package %q to %d record(s)\n", pkg.Name, len(updated))
	return nil
}

func runPurchase(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := labelFormat(a)
	if err != nil {
		return err
	}

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	store := a.coord.Store()

	// Walk the gate forward to Purchase; a blocked transition explains what
	// is still missing.
	for store.Step() < session.StepPurchase {
		if err := store.Advance(); err != nil {
			return err
		}
	}

	resp, err := a.coord.Purchase(cmd.Context(), format, flagAcceptTerms)
	if err != nil {
		return err
	}
	fmt.Printf("%s\nTotal: %s  New balance: %s\n", resp.Message, resp.Total, resp.NewBalance)

	if flagPurchaseOut != "" {
		renderer := label.NewRenderer(format)
		if err := renderer.RenderFile(store.Records(), flagPurchaseOut); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", flagPurchaseOut)
	}
	return nil
}

func runLabels(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := labelFormat(a)
	if err != nil {
		return err
	}

	if err := a.coord.LoadAll(cmd.Context()); err != nil {
		return err
	}
	store := a.coord.Store()

	records := store.Records()
	if len(args) > 0 {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		store.SetSelection(ids)
		records = store.SelectedRecords()
	}

	out := flagLabelsOut
	if filepath.Dir(out) == "." && a.cfg.LabelsDir != "" {
		out = filepath.Join(a.cfg.LabelsDir, out)
	}
	renderer := label.NewRenderer(format)
	if err := renderer.RenderFile(records, out); err != nil {
		return err
	}
	fmt.Printf("Wrote %d label(s) to %s\n", len(records), out)
	return nil
}

// labelFormat resolves the --format flag against the configured default.
func labelFormat(a *app) (shipment.LabelFormat, error) {
	raw := flagLabelFormat
	if raw == "" {
		raw = a.cfg.LabelFormat
	}
	return shipment.ParseLabelFormat(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
