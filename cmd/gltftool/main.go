// gltftool is a CLI utility for inspecting glTF and GLB assets.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/importer"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		exit(1)
	}

	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "tree", "ls":
		cmdTree(args)
	case "clips", "anim":
		cmdClips(args)
	case "validate", "check":
		cmdValidate(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		exit(1)
	}
}

// osExit is replaced in tests.
var osExit = os.Exit

// exit flushes the global logger and ends the process. Deferred calls do not
// run on os.Exit.
func exit(code int) {
	logger.Sync()
	osExit(code)
}

func printUsage() {
	fmt.Println(`gltftool - glTF 2.0 / GLB asset utility

Usage:
  gltftool <command> [options] <file>

Commands:
  info <file>        Show document and import summary
  tree <file>        Print the assembled node hierarchy
  clips <file>       List animation clips and their channels
  validate <file>    Import and report warnings (exit 2 if any)
  config [path]      Write the default config file

Options (all import commands):
  -config <path>     Config file (default: search standard locations)
  -async             Decode stages on a worker pool
  -workers <n>       Worker pool size
  -normals           Generate missing normals
  -debug             Debug logging on stderr
  -log <path>        Log to a rotating file

Examples:
  gltftool info model.glb
  gltftool tree -async scene.gltf
  gltftool validate -debug broken.gltf`)
}

// load imports the file named by the single positional argument. It exits
// the process on usage errors and fatal import errors.
func load(name string, args []string) *importer.Result {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: gltftool %s [options] <file>\n", name)
		exit(1)
	}
	path := fs.Arg(0)

	cfg, err := config.Load(flags.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
	flags.Apply(cfg)

	fileCfg := logger.DefaultFileConfig(cfg.Logging.LogFile)
	fileCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
	fileCfg.MaxBackups = cfg.Logging.MaxBackups
	fileCfg.MaxAgeDays = cfg.Logging.MaxAgeDays
	fileCfg.Compress = cfg.Logging.Compress
	log := logger.Init(cfg.Logging.Level, fileCfg, flags.Debug)

	im, err := importer.FromConfig(cfg, importer.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := im.Load(ctx, importer.File(path, importer.FormatFromPath(path)), nil)
	if err != nil {
		log.Debug("import failed", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
	return res
}

func cmdInfo(args []string) {
	res := load("info", args)
	printInfo(os.Stdout, res)
}

func cmdTree(args []string) {
	res := load("tree", args)
	printTree(os.Stdout, res.Root, 0)
}

func cmdClips(args []string) {
	res := load("clips", args)
	printClips(os.Stdout, res.Clips)
}

func cmdValidate(args []string) {
	res := load("validate", args)
	if len(res.Warnings) == 0 {
		fmt.Println("OK")
		return
	}
	printWarnings(os.Stdout, res)
	exit(2)
}

func cmdConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	force := fs.Bool("f", false, "Overwrite an existing file")
	fs.Parse(args)

	cfg := config.Default()
	if fs.NArg() < 1 {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", config.ConfigDir())
		return
	}

	path := fs.Arg(0)
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "File exists: %s (use -f to overwrite)\n", path)
		exit(1)
	}
	if err := cfg.SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

func printInfo(w io.Writer, res *importer.Result) {
	doc := res.Document
	fmt.Fprintf(w, "Generator:  %s\n", orDash(doc.Asset.Generator))
	fmt.Fprintf(w, "Version:    %s\n", doc.Asset.Version)
	if len(doc.ExtensionsUsed) > 0 {
		fmt.Fprintf(w, "Extensions: %s\n", strings.Join(doc.ExtensionsUsed, ", "))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Document:")
	for _, c := range []struct {
		name  string
		count int
	}{
		{"buffers", len(doc.Buffers)},
		{"bufferViews", len(doc.BufferViews)},
		{"accessors", len(doc.Accessors)},
		{"images", len(doc.Images)},
		{"textures", len(doc.Textures)},
		{"materials", len(doc.Materials)},
		{"meshes", len(doc.Meshes)},
		{"skins", len(doc.Skins)},
		{"cameras", len(doc.Cameras)},
		{"nodes", len(doc.Nodes)},
		{"animations", len(doc.Animations)},
	} {
		if c.count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.name, c.count)
		}
	}
	fmt.Fprintln(w)

	var prims, verts, tris int
	res.Root.Walk(func(n *scene.Node) bool {
		if n.Mesh == nil {
			return true
		}
		for i := range n.Mesh.Primitives {
			p := &n.Mesh.Primitives[i]
			prims++
			verts += p.VertexCount()
			if p.Mode == gltf.ModeTriangles {
				if len(p.Indices) > 0 {
					tris += len(p.Indices) / 3
				} else {
					tris += p.VertexCount() / 3
				}
			}
		}
		return true
	})

	fmt.Fprintln(w, "Import:")
	fmt.Fprintf(w, "  %-12s %d\n", "nodes", res.Root.Count())
	fmt.Fprintf(w, "  %-12s %d\n", "primitives", prims)
	fmt.Fprintf(w, "  %-12s %d\n", "vertices", verts)
	fmt.Fprintf(w, "  %-12s %d\n", "triangles", tris)
	fmt.Fprintf(w, "  %-12s %d\n", "clips", len(res.Clips))
	fmt.Fprintf(w, "  %-12s %d\n", "warnings", len(res.Warnings))
}

func printTree(w io.Writer, n *scene.Node, depth int) {
	var attrs []string
	if n.Mesh != nil {
		attrs = append(attrs, fmt.Sprintf("mesh=%s(%d)", orDash(n.Mesh.Name), len(n.Mesh.Primitives)))
	}
	if n.Skin != nil {
		attrs = append(attrs, fmt.Sprintf("skin=%d joints", len(n.Skin.Joints)))
	}
	if n.Camera != nil {
		kind := "perspective"
		if n.Camera.Orthographic {
			kind = "orthographic"
		}
		attrs = append(attrs, "camera="+kind)
	}
	t := n.World.Translation()
	attrs = append(attrs, fmt.Sprintf("at=(%.3g %.3g %.3g)", t.X, t.Y, t.Z))

	fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), orDash(n.Name), strings.Join(attrs, " "))
	for _, c := range n.Children {
		printTree(w, c, depth+1)
	}
}

func printClips(w io.Writer, clips []*scene.Clip) {
	if len(clips) == 0 {
		fmt.Fprintln(w, "No animation clips")
		return
	}
	for _, c := range clips {
		fmt.Fprintf(w, "%s  %.3fs  %d channels\n", c.Name, c.Duration, len(c.Channels))
		for _, ch := range c.Channels {
			target := "?"
			if ch.Target != nil {
				target = orDash(ch.Target.Name)
			}
			fmt.Fprintf(w, "  %-16s %-12s %-11s %d keys\n", target, ch.Path, ch.Interpolation, len(ch.Times))
		}
	}
}

func printWarnings(w io.Writer, res *importer.Result) {
	// Group by kind, most frequent first.
	byKind := make(map[string]int)
	for _, warn := range res.Warnings {
		byKind[warn.Kind.String()]++
	}
	type kindStat struct {
		kind  string
		count int
	}
	var stats []kindStat
	for k, n := range byKind {
		stats = append(stats, kindStat{k, n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].kind < stats[j].kind
	})

	for _, warn := range res.Warnings {
		fmt.Fprintln(w, warn.Error())
	}
	fmt.Fprintln(w)
	for _, s := range stats {
		fmt.Fprintf(w, "  %-22s %d\n", s.kind, s.count)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
