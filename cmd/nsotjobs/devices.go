package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/nsot-jobs/internal/device"
)

func newDevicesCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage devices in the registry",
	}
	cmd.AddCommand(newDevicesListCommand(opts), newDevicesAddCommand(opts), newDevicesDeleteCommand(opts))
	return cmd
}

func newDevicesListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			devices, err := a.registry.ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing devices: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTYPE\tSTATUS\tSITE\tROLE\tTAGS")
			for _, d := range devices {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					d.Name, d.DeviceType, d.Status, dash(d.Site), dash(d.Role), dash(strings.Join(d.Tags, ",")))
			}
			return tw.Flush()
		},
	}
}

func newDevicesAddCommand(opts *rootOptions) *cobra.Command {
	d := &device.Device{}
	var status string

	cmd := &cobra.Command{
		Use:     "add NAME",
		Short:   "Add a device",
		Example: `  nsotjobs devices add core-sw-01 --type dcs-7280 --site lab --tag core`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Name = args[0]
			d.Status = device.Status(status)

			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.registry.CreateDevice(cmd.Context(), d); err != nil {
				return fmt.Errorf("adding device: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", d.Name, d.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&d.DeviceType, "type", "", "device type, e.g. dcs-7280 (required)")
	cmd.Flags().StringVar(&d.Role, "role", "", "device role")
	cmd.Flags().StringVar(&d.Site, "site", "", "site the device is placed at")
	cmd.Flags().StringVar(&d.Serial, "serial", "", "serial number")
	cmd.Flags().StringVar(&d.Slug, "slug", "", "slug (generated from the name when empty)")
	cmd.Flags().StringVar(&status, "status", "", "status: active, planned, staged, offline or decommissioning (default active)")
	cmd.Flags().StringSliceVar(&d.Tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func newDevicesDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a device by exact name",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.registry.GetDeviceByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("deleting device %q: %w", args[0], err)
			}
			if err := a.registry.DeleteDevice(cmd.Context(), d.ID); err != nil {
				return fmt.Errorf("deleting device %q: %w", args[0], err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%s)\n", d.Name, d.ID)
			return err
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
