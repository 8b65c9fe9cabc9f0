package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/utils"
)

var (
	rootCmd = &cobra.Command{
		Use:   "decode [--hex payload | payload]",
		Short: "Decode Ruuvi data format 3 payloads",
		Long: "decode parses a manufacturer-specific data payload and prints the reading as JSON.\n" +
			"The payload is taken from --hex or the first argument; without either it reads\n" +
			"one payload per line from stdin.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			company, err := parseCompanyID(companyFlag)
			if err != nil {
				return err
			}
			switch {
			case hexFlag != "" && len(args) > 0:
				return fmt.Errorf("payload given both as --hex and as an argument")
			case hexFlag != "":
				return runDecode(cmd.OutOrStdout(), company, hexFlag)
			case len(args) > 0:
				return runDecode(cmd.OutOrStdout(), company, args[0])
			default:
				return runInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), company)
			}
		},
	}

	companyFlag string
	hexFlag     string
	macFlag     string
)

func init() {
	rootCmd.Flags().StringVar(&companyFlag, "company", "0x0499", "manufacturer id the payload is keyed by")
	rootCmd.Flags().StringVar(&hexFlag, "hex", "", "hex-encoded payload (separators ' ', ':' and '-' are ignored)")
	rootCmd.Flags().StringVar(&macFlag, "mac", "", "device address to attach to the reading")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseCompanyID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid --company %q: %w", s, err)
	}
	return uint16(v), nil
}

func decodePayload(company uint16, input string) (ruuvi.Reading, error) {
	data, err := utils.ParseHex(input)
	if err != nil {
		return ruuvi.Reading{}, err
	}
	r, err := ruuvi.Decode(ruuvi.RawPacket{company: data})
	if err != nil {
		return ruuvi.Reading{}, err
	}
	if macFlag != "" {
		r = r.WithMAC(macFlag)
	}
	return r, nil
}

func runDecode(out io.Writer, company uint16, input string) error {
	r, err := decodePayload(company, input)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func runInteractive(in io.Reader, out, errOut io.Writer, company uint16) error {
	scanner := bufio.NewScanner(in)
	failed := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := runDecode(out, company, line); err != nil {
			failed++
			fmt.Fprintf(errOut, "%s: %v\n", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d payload(s) failed to decode", failed)
	}
	return nil
}
