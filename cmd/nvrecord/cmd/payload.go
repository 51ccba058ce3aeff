package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// parseHex accepts hex with optional whitespace and colons between bytes
func parseHex(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "").Replace(s)
	p, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return p, nil
}

// payloadFlags reads the payload from --hex or --file. required demands
// exactly one of them; otherwise neither yields an empty payload.
func payloadFlags(cmd *cobra.Command, required bool) ([]byte, error) {
	hexValue, _ := cmd.Flags().GetString("hex")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case hexValue != "" && file != "":
		return nil, errors.New("use only one of --hex and --file")
	case hexValue != "":
		return parseHex(hexValue)
	case file != "":
		p, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		return p, nil
	case required:
		return nil, errors.New("a payload is required: use --hex or --file")
	default:
		return nil, nil
	}
}

func addPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().String("hex", "", "Payload as hex bytes, zero padded to the payload size")
	cmd.Flags().String("file", "", "Read the payload from a file")
}
