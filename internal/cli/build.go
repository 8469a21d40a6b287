package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/matzehuels/sparsetree/pkg/io"
	"github.com/matzehuels/sparsetree/pkg/manifest"
	"github.com/matzehuels/sparsetree/pkg/snode"
)

const defaultMongoDB = "sparsetree"

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	dump     bool   // print the indented layout dump
	styled   bool   // colorize the dump
	tree     bool   // print a box-drawing tree
	json     string // write a JSON snapshot to this path
	publish  bool   // store the snapshot in MongoDB
	mongoURI string // MongoDB connection string
	mongoDB  string // MongoDB database
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	opts := buildOpts{mongoDB: defaultMongoDB}

	cmd := &cobra.Command{
		Use:   "build <manifest>",
		Short: "Build and finalize a layout manifest",
		Long: `Build the layout tree described by a TOML manifest and finalize it.

Finalization checks the layout (consistent trailing bits, packed members
that fit their physical word) and derives the per-node properties that
query and render report.`,
		Example: `  sparsetree build particles.toml --dump
  sparsetree build particles.toml --tree
  sparsetree build particles.toml --json particles.json
  sparsetree build particles.toml --publish --mongo-uri mongodb://localhost:27017`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dump, "dump", false, "print the layout tree")
	cmd.Flags().BoolVar(&opts.styled, "color", false, "colorize the dump and show field names")
	cmd.Flags().BoolVar(&opts.tree, "tree", false, "print the layout as a box-drawing tree")
	cmd.Flags().StringVar(&opts.json, "json", "", "write a JSON snapshot of the finalized tree")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "store the snapshot in MongoDB")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection string (default $"+envMongoURI+")")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", opts.mongoDB, "MongoDB database")

	return cmd
}

func (c *CLI) runBuild(cmd *cobra.Command, path string, opts buildOpts) error {
	prog := newProgress(c.Logger)
	l, err := c.loadLayout(path)
	if err != nil {
		return err
	}
	name := layoutName(l, path)
	prog.done(fmt.Sprintf("Built %s", name))

	out := cmd.OutOrStdout()
	switch {
	case opts.tree:
		fmt.Fprint(out, treeView(l.Tree))
	case opts.dump && opts.styled:
		fmt.Fprint(out, styledDump(l.Tree))
	case opts.dump:
		if err := l.Tree.Dump(out); err != nil {
			return err
		}
	}

	if opts.json != "" {
		if err := io.ExportJSON(l.Tree, name, opts.json); err != nil {
			return err
		}
		c.Logger.Debug("snapshot written", "path", opts.json)
	}

	var published string
	if opts.publish {
		if published, err = c.publish(cmd.Context(), l, name, opts); err != nil {
			return err
		}
	}

	if !opts.dump && !opts.tree {
		printSuccess("Layout %s", StyleTitle.Render(name))
		fmt.Println(formatStats(collectStats(l.Tree)))
		if opts.json != "" {
			printFile(opts.json)
		}
		if published != "" {
			printDetail("Published %s", published)
		}
		fmt.Println()
		printNextStep("Inspect fields", fmt.Sprintf("%s query %s", appName, path))
	}
	return nil
}

// publish stores the layout's snapshot and returns its id.
func (c *CLI) publish(ctx context.Context, l *manifest.Layout, name string, opts buildOpts) (string, error) {
	uri := opts.mongoURI
	if uri == "" {
		uri = os.Getenv(envMongoURI)
	}
	if uri == "" {
		return "", fmt.Errorf("--publish needs --mongo-uri or $%s", envMongoURI)
	}

	snap, err := io.FromTree(l.Tree, name)
	if err != nil {
		return "", err
	}
	store, err := io.NewMongoStore(ctx, uri, opts.mongoDB)
	if err != nil {
		return "", err
	}
	defer store.Close(context.WithoutCancel(ctx))

	if err := store.Put(ctx, snap); err != nil {
		return "", err
	}
	c.Logger.Debug("snapshot published", "id", snap.ID, "database", opts.mongoDB)
	return snap.ID, nil
}

// treeView renders the tree with box-drawing branches. Leaves show their
// field name and exponent leaf.
func treeView(t *snode.Tree) string {
	root := t.Root()
	view := treeprint.NewWithRoot(root.HintedName())
	addChildren(view, root)
	return view.String()
}

func addChildren(branch treeprint.Tree, n *snode.Node) {
	for _, c := range n.Children() {
		if c.NumChildren() > 0 {
			addChildren(branch.AddBranch(c.HintedName()), c)
			continue
		}
		label := c.HintedName()
		if c.IsPlace() {
			label += " " + c.Name()
		}
		if exp := c.ExponentNode(); exp != nil {
			label += " exp=" + exp.NodeTypeName()
		}
		branch.AddNode(label)
	}
}
