package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"checkoutsdk/internal/common/fsutil"
	"checkoutsdk/pkg/checkout"
	"checkoutsdk/pkg/types"
)

func newURLCmd(opts *options) *cobra.Command {
	var (
		qrPath  string
		qrSize  int
		variant string
	)
	cmd := &cobra.Command{
		Use:     "url",
		Short:   "Print the widget URL for the configured host",
		Example: "  checkoutd url --variant hosted-mobile --qr widget.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, os.Getenv)
			if err != nil {
				return err
			}
			if variant != "" {
				cfg.Widget.Variant = types.Variant(variant)
			}
			log, closer, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			u, err := widgetURL(cfg.Widget, cfg.Viewport, cfg.HostURL, log)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), u); err != nil {
				return err
			}
			if qrPath == "" {
				return nil
			}
			if err := fsutil.ExpandAll(&qrPath); err != nil {
				return err
			}
			if err := fsutil.EnsureParentDir(qrPath); err != nil {
				return err
			}
			if err := qrcode.WriteFile(u, qrcode.Medium, qrSize, qrPath); err != nil {
				return fmt.Errorf("write qr code: %w", err)
			}
			log.Info().Str("path", qrPath).Msg("qr code written")
			return nil
		},
	}
	cmd.Flags().StringVar(&qrPath, "qr", "", "Also write the URL as a PNG QR code to this path")
	cmd.Flags().IntVar(&qrSize, "qr-size", 256, "QR code size in pixels")
	cmd.Flags().StringVar(&variant, "variant", "", "Override the configured widget variant")
	return cmd
}

// widgetURL builds the URL a fresh SDK instance would open. Config
// diagnostics are logged at warn.
func widgetURL(w types.HostConfig, vp types.Viewport, hostURL string, log zerolog.Logger) (string, error) {
	sdk, err := checkout.New(w, checkout.Options{
		Logger:   &log,
		Viewport: vp,
		HostURL:  hostURL,
	})
	if err != nil {
		return "", err
	}
	defer sdk.Shutdown()
	return sdk.WidgetURL(), nil
}
