package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"franklink-backend/internal/di"
	"franklink-backend/internal/domain"
	"franklink-backend/internal/layout"
	"franklink-backend/pkg/auth"
)

// loadGraph wires the service quietly and loads user's graph.
func loadGraph(ctx context.Context, user string) (*domain.Graph, func(), error) {
	quiet := *cfg
	quiet.Logging.Level = "error"
	quiet.Metrics.Enabled = false
	quiet.Tracing.Enabled = false

	container, cleanup, err := di.InitializeContainer(ctx, &quiet, di.Static(&quiet))
	if err != nil {
		return nil, nil, err
	}
	g, err := container.Loader.Load(auth.WithIdentity(ctx, &auth.Identity{UserID: user}))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return g, cleanup, nil
}

func graphCmd() *cobra.Command {
	var (
		user   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Load a user's connection graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			g, cleanup, err := loadGraph(cmd.Context(), user)
			if err != nil {
				return err
			}
			defer cleanup()

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(g)
			}

			field("Direct", g.Stats.DirectCount)
			field("Groups", g.Stats.GroupCount)
			if g.Stats.Truncated {
				warn.Println("  ! profile lookups were truncated")
			}
			for _, w := range g.Warnings {
				warn.Printf("  ! %s\n", w.Error())
			}
			fmt.Println()

			rows := make([][]string, 0, len(g.Nodes))
			for _, n := range g.Nodes {
				members := ""
				if n.Kind == domain.NodeKindGroup {
					members = strconv.Itoa(n.MemberCount)
				}
				rows = append(rows, []string{n.ID, string(n.Kind), n.Label, members})
			}
			table([]string{"ID", "TYPE", "LABEL", "MEMBERS"}, rows)
			if g.IsEmpty() {
				subtle.Println("\n  No connections yet")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User id to load the graph for")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the graph as JSON")
	return cmd
}

func layoutCmd() *cobra.Command {
	var (
		user   string
		width  float64
		height float64
		out    string
	)

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Run the force layout to completion and write the graph as SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(user); err != nil {
				return err
			}
			g, cleanup, err := loadGraph(cmd.Context(), user)
			if err != nil {
				return err
			}
			defer cleanup()

			params := cfg.Graph.Layout
			sim := layout.NewSimulation(g, params, layout.Viewport{Width: width, Height: height}.OrDefault())
			for !sim.Settled() && sim.Ticks() < params.MaxTicks {
				sim.Tick()
			}
			frame := sim.Frame()

			w := os.Stdout
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := layout.RenderSVG(w, g, frame); err != nil {
				return err
			}
			if w != os.Stdout {
				good.Printf("  ✓ wrote %s (%d nodes, %d ticks)\n", out, len(g.Nodes), frame.Tick)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User id to lay out")
	cmd.Flags().Float64Var(&width, "width", 0, "Viewport width (default 800)")
	cmd.Flags().Float64Var(&height, "height", 0, "Viewport height (default 600)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "SVG output file, - for stdout")
	return cmd
}
