// File: cmd/classify.go
package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/engine/clickpolicy"
)

// classifyOutput pairs each element snapshot with its verdict.
type classifyOutput struct {
	Element schemas.ElementInfo `json:"element"`
	Verdict string              `json:"verdict"`
}

// newClassifyCmd creates the `classify` command: run the click-override
// rules over element snapshots supplied as JSON.
func newClassifyCmd() *cobra.Command {
	var input string

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify elements against the click-override rules",
		Long: `Reads a JSON array of element snapshots ({"tag", "id", "class",
"aria_label"}) from a file or stdin and prints the verdict for each:
allow, deny, or defer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var raw []byte
			if input == "-" || input == "" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(input)
			}
			if err != nil {
				return fmt.Errorf("reading element snapshots: %w", err)
			}

			json := jsoniter.ConfigCompatibleWithStandardLibrary
			var infos []schemas.ElementInfo
			if err := json.Unmarshal(raw, &infos); err != nil {
				return fmt.Errorf("decoding element snapshots: %w", err)
			}

			classifier := clickpolicy.FromConfig(cfg.ClickPolicy)
			out := make([]classifyOutput, 0, len(infos))
			for _, info := range infos {
				out = append(out, classifyOutput{
					Element: info,
					Verdict: classifier.Classify(info).String(),
				})
			}

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return nil
		},
	}

	classifyCmd.Flags().StringVarP(&input, "input", "i", "-", "JSON file of element snapshots (- for stdin)")

	return classifyCmd
}
