package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/tilegrid/pkg/asset"
	"github.com/PhantomInTheWire/tilegrid/pkg/editor"
	"github.com/PhantomInTheWire/tilegrid/pkg/filter"
	"github.com/PhantomInTheWire/tilegrid/pkg/generate"
	"github.com/PhantomInTheWire/tilegrid/pkg/inbox"
	"github.com/PhantomInTheWire/tilegrid/pkg/split"
	"github.com/PhantomInTheWire/tilegrid/pkg/stitch"
)

var (
	rows, cols int
	outDir     string
	row, col   int
	prompt     string
	openPrompt string
)

func init() {
	sliceCmd.Flags().IntVar(&rows, "rows", 0, "grid rows (default from config)")
	sliceCmd.Flags().IntVar(&cols, "cols", 0, "grid columns (default from config)")
	sliceCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for tiles")

	composeCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for the tilemap")

	for _, c := range []*cobra.Command{editCmd, filterCmd} {
		c.Flags().IntVar(&row, "row", 0, "row of the tile to edit")
		c.Flags().IntVar(&col, "col", 0, "column of the tile to edit")
		c.Flags().StringVarP(&outDir, "out", "o", "", "output directory for the tilemap")
	}
	editCmd.Flags().StringVarP(&prompt, "prompt", "p", "A small treasure chest, pixel art.", "what the new tile should look like")

	openCmd.Flags().IntVar(&row, "row", 0, "row of the tile to edit")
	openCmd.Flags().IntVar(&col, "col", 0, "column of the tile to edit")
	openCmd.Flags().StringVarP(&openPrompt, "prompt", "p", "", "regenerate the tile at --row/--col before exporting")
	openCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory for the tilemap")

	watchCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory; each image gets a subdirectory")

	rootCmd.AddCommand(sliceCmd, composeCmd, editCmd, filterCmd, openCmd, watchCmd, assetsCmd)
}

var sliceCmd = &cobra.Command{
	Use:   "slice <image>",
	Short: "Cut an image into equal tiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, c := rows, cols
		if r == 0 {
			r = cfg.Grid.UploadRows
		}
		if c == 0 {
			c = cfg.Grid.UploadCols
		}

		src, err := imaging.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input image: %w", err)
		}
		g, err := split.Image(src, r, c)
		if err != nil {
			return err
		}
		sink, err := openSink(ctx, outDir, "")
		if err != nil {
			return err
		}
		names, err := split.Save(ctx, g, sink)
		if err != nil {
			return err
		}
		fmt.Println("Tiles created:", names)
		return nil
	},
}

var composeCmd = &cobra.Command{
	Use:   "compose <tile-dir>",
	Short: "Stitch tile_<row>_<col>.png files back into one tilemap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g, err := stitch.LoadDir(args[0])
		if err != nil {
			return err
		}
		sink, err := openSink(ctx, outDir, "")
		if err != nil {
			return err
		}
		repo, closeRepo, err := openAssets()
		if err != nil {
			return err
		}
		defer closeRepo()

		ed, err := newEditor(nil, repo, sink)
		if err != nil {
			return err
		}
		ed.Replace(g)
		return export(ctx, ed)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <image>",
	Short: "Regenerate one tile of an image and export the tilemap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		gen := newGenerator(ctx)
		return editAndExport(ctx, args[0], gen, func(ed *editor.Editor) error {
			return applyEdit(ctx, ed, gen, prompt)
		})
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter <image>",
	Short: "Run the WASM filter over one tile and export the tilemap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Filter.WasmPath == "" {
			return errors.New("filter.wasm_path (or TILEGRID_FILTER_WASM) is required")
		}
		f, err := filter.Open(cfg.Filter.WasmPath, cfg.Filter.Workers, cfg.Filter.Func)
		if err != nil {
			return err
		}
		defer f.Close()
		return editAndExport(ctx, args[0], nil, func(ed *editor.Editor) error {
			log.Printf("applying filter %s to tile %d,%d", f.Name(), row, col)
			return ed.ApplyFilter(ctx, f)
		})
	},
}

// editAndExport loads path as an upload, selects --row/--col, runs edit and
// exports the result.
func editAndExport(ctx context.Context, path string, gen editor.Generator, edit func(*editor.Editor) error) error {
	sink, err := openSink(ctx, outDir, "")
	if err != nil {
		return err
	}
	repo, closeRepo, err := openAssets()
	if err != nil {
		return err
	}
	defer closeRepo()

	ed, err := newEditor(gen, repo, sink)
	if err != nil {
		return err
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := ed.LoadUpload(ctx, file); err != nil {
		return err
	}

	ed.SelectTile(row, col)
	if err := edit(ed); err != nil {
		return err
	}
	return export(ctx, ed)
}

// applyEdit regenerates the selected tile, reporting the service's message
// when it has one.
func applyEdit(ctx context.Context, ed *editor.Editor, gen *generate.Service, prompt string) error {
	if err := ed.ApplyEdit(ctx, prompt); err != nil {
		if msg := gen.Error(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	return nil
}

func export(ctx context.Context, ed *editor.Editor) error {
	a, err := ed.Export(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (asset %s)\n", cfg.Export.Filename, a.ID)
	return nil
}

var openCmd = &cobra.Command{
	Use:   "open <asset-id>",
	Short: "Reopen a stored tilemap as a 3x3 grid, optionally edit one tile, and export it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, closeRepo, err := openAssets()
		if err != nil {
			return err
		}
		defer closeRepo()

		a, ok := repo.Get(args[0])
		if !ok {
			return fmt.Errorf("asset %s not found", args[0])
		}
		if a.Kind != asset.KindTilemap {
			return fmt.Errorf("%w: %s is a %s", editor.ErrNotTilemap, a.ID, a.Kind)
		}
		sink, err := openSink(ctx, outDir, "")
		if err != nil {
			return err
		}

		var gen editor.Generator
		var svc *generate.Service
		if openPrompt != "" {
			svc = newGenerator(ctx)
			gen = svc
		}
		ed, err := newEditor(gen, repo, sink)
		if err != nil {
			return err
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		loaded := ed.Watch(watchCtx, repo)
		repo.Select(&a)
		err, ok = <-loaded
		if !ok {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		log.Printf("reopened %s", a.ID)

		if svc != nil {
			ed.SelectTile(row, col)
			if err := applyEdit(ctx, ed, svc, openPrompt); err != nil {
				return err
			}
		}
		return export(ctx, ed)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <inbox-dir>",
	Short: "Slice every image dropped into a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w, err := inbox.NewWatcher(args[0])
		if err != nil {
			return err
		}
		defer w.Close()

		base := outDir
		if base == "" {
			base = cfg.Export.Dir
		}
		log.Printf("watching %s", args[0])
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-w.Errors:
				log.Printf("watch: %v", err)
			case path := <-w.Events:
				if err := sliceDropped(ctx, path, base); err != nil {
					log.Printf("watch: %s: %v", path, err)
				}
			}
		}
	},
}

func sliceDropped(ctx context.Context, path, base string) error {
	// let the writer finish
	time.Sleep(50 * time.Millisecond)
	src, err := imaging.Open(path)
	if err != nil {
		return err
	}
	g, err := split.Image(src, cfg.Grid.UploadRows, cfg.Grid.UploadCols)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sink, err := openSink(ctx, base, name)
	if err != nil {
		return err
	}
	names, err := split.Save(ctx, g, sink)
	if err != nil {
		return err
	}
	log.Printf("sliced %s into %d tiles", path, len(names))
	return nil
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List stored assets, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openAssets()
		if err != nil {
			return err
		}
		defer closeRepo()
		for _, a := range repo.Assets() {
			fmt.Printf("%s  %-11s  %s  %q  %d bytes\n",
				a.ID, a.Kind, a.CreatedAt.Format(time.RFC3339), a.Prompt, len(a.Image))
		}
		return nil
	},
}
