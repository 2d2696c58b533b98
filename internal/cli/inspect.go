package cli

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shaiso/StageGate/internal/logscan"
	"github.com/shaiso/StageGate/internal/params"
)

// ErrMarkerFound — в логе найден маркер ошибки.
var ErrMarkerFound = errors.New("error marker found")

// NewParamsCmd создаёт команду вывода разобранного parameters.txt.
func NewParamsCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "params FILE",
		Short: "Show parameters as the gate reads them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			m, err := params.Read(args[0])
			if err != nil {
				return err
			}

			keys := m.Keys()
			rows := make([][]string, len(keys))
			for i, k := range keys {
				rows[i] = []string{k, m[k]}
			}

			out.Print([]string{"KEY", "VALUE"}, rows, m)
			return nil
		},
	}
}

// NewScanCmd создаёт команду проверки лога солвера.
func NewScanCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "scan LOG",
		Short: "Scan a solver log for error markers (exit 1 if found)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			finding, err := logscan.Scan(args[0])
			if err != nil {
				return err
			}

			line := "-"
			if finding.Marked {
				line = strconv.Itoa(finding.Line)
			}
			out.Print(
				[]string{"PATH", "MARKED", "LINE", "TEXT"},
				[][]string{{finding.Path, strconv.FormatBool(finding.Marked), line, finding.Text}},
				finding,
			)

			if finding.Marked {
				return ErrMarkerFound
			}
			return nil
		},
	}
}
