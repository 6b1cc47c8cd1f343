package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/chazu/burl/pkg/config"
	"github.com/chazu/burl/pkg/engine"
	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/kernel/backend"
	"github.com/chazu/burl/pkg/session"
	"github.com/chazu/burl/pkg/tessellate"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Evaluate a console script and print the resulting objects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		meshes, _ := cmd.Flags().GetBool("meshes")
		stlPath, _ := cmd.Flags().GetString("stl")

		k, err := backend.New(cfg.Kernel, logger)
		if err != nil {
			return err
		}
		s := session.New(k, session.WithLogger(logger))
		if err := s.Open(); err != nil {
			return err
		}

		eng := engine.NewEngine(
			engine.WithTimeout(cfg.Console.Timeout),
			engine.WithThresholds(gestureThresholds(cfg)),
			engine.WithLogger(logger),
		)
		res, evalErrs, err := eng.Evaluate(s, string(src))
		if err != nil {
			return err
		}
		logger.Debug("script evaluated", "created", len(res.Created), "intents", len(res.Intents))

		var parts []tessellate.Part
		if meshes || stlPath != "" {
			if parts, err = tessellate.Tessellate(s); err != nil {
				return err
			}
		}
		if err := printObjects(cmd.OutOrStdout(), s.Snapshot(), parts, meshes); err != nil {
			return err
		}
		if stlPath != "" {
			if err := tessellate.SaveSTL(stlPath, parts); err != nil {
				return err
			}
			logger.Info("wrote stl", "path", stlPath, "triangles", len(tessellate.Triangles(parts)))
		}
		for _, e := range evalErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", args[0], e.Error())
		}
		if n := len(evalErrs); n > 0 {
			return fmt.Errorf("%s: %d evaluation error(s)", args[0], n)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("meshes", false, "Tessellate each object and print vertex and triangle counts")
	runCmd.Flags().String("stl", "", "Write the tessellated scene to this STL file")
	rootCmd.AddCommand(runCmd)
}

func gestureThresholds(cfg config.Config) gesture.Thresholds {
	return gesture.Thresholds{
		LongPress:   cfg.Gesture.LongPress,
		ClickWindow: cfg.Gesture.ClickWindow,
	}
}

// printObjects renders the snapshot's objects as a table, marking the
// selected one. parts supplies mesh counts when meshes is set.
func printObjects(w io.Writer, snap session.Snapshot, parts []tessellate.Part, meshes bool) error {
	counts := make(map[kernel.ObjectID]*kernel.Mesh, len(parts))
	for _, p := range parts {
		counts[p.ID] = p.Mesh
	}
	if len(snap.Objects) == 0 {
		_, err := fmt.Fprintln(w, "no objects")
		return err
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	selected := cell.Foreground(lipgloss.Color("#E67E22"))

	headers := []string{"", "ID", "KIND", "PARAMS", "POSITION"}
	if meshes {
		headers = append(headers, "VERTICES", "TRIANGLES")
	}

	selRow := -1
	rows := make([][]string, 0, len(snap.Objects))
	for i, o := range snap.Objects {
		mark := ""
		if o.ID == snap.SelectedID {
			mark = "*"
			selRow = i
		}
		p := o.Placement.Position
		row := []string{
			mark,
			strconv.FormatUint(uint64(o.ID), 10),
			o.Params.Kind.String(),
			formatParams(o.Params),
			fmt.Sprintf("(%s, %s, %s)", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z)),
		}
		if meshes {
			m := counts[o.ID]
			if m == nil {
				m = kernel.Decode(nil, nil)
			}
			row = append(row, strconv.Itoa(m.VertexCount()), strconv.Itoa(m.TriangleCount()))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case row == selRow:
				return selected
			default:
				return cell
			}
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatParams(p session.Params) string {
	names := session.ParamNames(p.Kind)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		v, _ := p.Get(n)
		parts = append(parts, n+"="+formatFloat(v))
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
