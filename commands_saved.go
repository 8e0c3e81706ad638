package main

import (
	"fmt"

	"github.com/Saraahamrr/bulk-shipping-platform/pkg/shipment"
	"github.com/spf13/cobra"
)

var (
	flagAddrName  string
	flagAddrFirst string
	flagAddrLast  string
	flagAddrLine1 string
	flagAddrLine2 string
	flagAddrCity  string
	flagAddrState string
	flagAddrZip   string
	flagAddrPhone string

	flagPkgName   string
	flagPkgLength float64
	flagPkgWidth  float64
	flagPkgHeight float64
	flagPkgLbs    int
	flagPkgOz     int
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "List saved ship-from addresses",
	RunE:  runAddressesList,
}

var addressesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a ship-from address",
	RunE:  runAddressesAdd,
}

var addressesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved address",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddressesDelete,
}

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List saved package presets",
	RunE:  runPackagesList,
}

var packagesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a package preset",
	RunE:  runPackagesAdd,
}

var packagesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved package",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackagesDelete,
}

func init() {
	addressesAddCmd.Flags().StringVar(&flagAddrName, "name", "", "template name")
	addressesAddCmd.Flags().StringVar(&flagAddrFirst, "first-name", "", "first name")
	addressesAddCmd.Flags().StringVar(&flagAddrLast, "last-name", "", "last name")
	addressesAddCmd.Flags().StringVar(&flagAddrLine1, "line1", "", "address line 1")
	addressesAddCmd.Flags().StringVar(&flagAddrLine2, "line2", "", "address line 2")
	addressesAddCmd.Flags().StringVar(&flagAddrCity, "city", "", "city")
	addressesAddCmd.Flags().StringVar(&flagAddrState, "state", "", "two-letter state")
	addressesAddCmd.Flags().StringVar(&flagAddrZip, "zip", "", "ZIP code")
	addressesAddCmd.Flags().StringVar(&flagAddrPhone, "phone", "", "phone number")
	addressesAddCmd.MarkFlagRequired("name")

	packagesAddCmd.Flags().StringVar(&flagPkgName, "name", "", "preset name")
	packagesAddCmd.Flags().Float64Var(&flagPkgLength, "length", 0, "length in inches")
	packagesAddCmd.Flags().Float64Var(&flagPkgWidth, "width", 0, "width in inches")
	packagesAddCmd.Flags().Float64Var(&flagPkgHeight, "height", 0, "height in inches")
	packagesAddCmd.Flags().IntVar(&flagPkgLbs, "lbs", 0, "weight pounds")
	packagesAddCmd.Flags().IntVar(&flagPkgOz, "oz", 0, "weight ounces")
	packagesAddCmd.MarkFlagRequired("name")

	addressesCmd.AddCommand(addressesAddCmd, addressesDeleteCmd)
	packagesCmd.AddCommand(packagesAddCmd, packagesDeleteCmd)
	rootCmd.AddCommand(addressesCmd, packagesCmd)
}

func runAddressesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addrs, err := a.client.ListAddresses(cmd.Context())
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		fmt.Println("No saved addresses")
		return nil
	}
	for _, addr := range addrs {
		fmt.Printf("%5d  %-20s  %s %s, %s, %s, %s %s\n",
			addr.ID, addr.Name, addr.FirstName, addr.LastName,
			addr.AddressLine1, addr.City, addr.State, addr.ZipCode)
	}
	return nil
}

func runAddressesAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.client.CreateAddress(cmd.Context(), shipment.SavedAddress{
		Name:         flagAddrName,
		FirstName:    flagAddrFirst,
		LastName:     flagAddrLast,
		AddressLine1: flagAddrLine1,
		AddressLine2: flagAddrLine2,
		City:         flagAddrCity,
		State:        flagAddrState,
		ZipCode:      flagAddrZip,
		Phone:        flagAddrPhone,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Saved address %q (id %d)\n", created.Name, created.ID)
	return nil
}

func runAddressesDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := a.client.DeleteAddress(cmd.Context(), ids[0]); err != nil {
		return err
	}
	fmt.Println("Deleted")
	return nil
}

func runPackagesList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pkgs, err := a.client.ListPackages(cmd.Context())
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No saved packages")
		return nil
	}
	for _, pkg := range pkgs {
		fmt.Printf("%5d  %-20s  %gx%gx%g in, %d lb %d oz\n",
			pkg.ID, pkg.Name, pkg.Length, pkg.Width, pkg.Height,
			pkg.WeightLbs, pkg.WeightOz)
	}
	return nil
}

func runPackagesAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.client.CreatePackage(cmd.Context(), shipment.SavedPackage{
		Name:      flagPkgName,
		Length:    flagPkgLength,
		Width:     flagPkgWidth,
		Height:    flagPkgHeight,
		WeightLbs: flagPkgLbs,
		WeightOz:  flagPkgOz,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Saved package %q (id %d)\n", created.Name, created.ID)
	return nil
}

func runPackagesDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := a.client.DeletePackage(cmd.Context(), ids[0]); err != nil {
		return err
	}
	fmt.Println("Deleted")
	return nil
}
