// Command seqrender renders frames of a JSON timeline project to PNG files.
//
//	seqrender -project edit.json -out frames/frame_%04d.png -start 1 -end 100
//
// Media paths in the project are relative to the project file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gogpu/seqrender"
	"github.com/gogpu/seqrender/cache"
	"github.com/gogpu/seqrender/media"
	"github.com/gogpu/seqrender/prefetch"
	"github.com/gogpu/seqrender/render"
	"github.com/gogpu/seqrender/thumbnail"
)

func main() {
	var (
		projectPath = flag.String("project", "project.json", "timeline project file")
		output      = flag.String("out", "frame_%04d.png", "output file pattern, one %d verb for the frame")
		start       = flag.Int("start", 0, "first frame (default scene start)")
		end         = flag.Int("end", 0, "last frame (default scene end)")
		channel     = flag.Int("channel", 0, "render channels up to this one (0 = all)")
		proxy       = flag.Bool("proxy", false, "decode proxy media when available")
		missing     = flag.Bool("missing", true, "draw a placeholder for missing media")
		memory      = flag.Int64("mem", 1024, "cache memory limit in MiB")
		ahead       = flag.Bool("prefetch", false, "prefetch the scene before rendering")
		thumbs      = flag.String("thumbs", "", "write source strip thumbnails to this directory")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	seqrender.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := os.Open(*projectPath)
	if err != nil {
		log.Fatalf("Failed to open project: %v", err)
	}
	scenes, err := loadProject(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to load project: %v", err)
	}
	scene := scenes[0]

	dec, err := media.NewFileDecoder(media.WithFS(os.DirFS(filepath.Dir(*projectPath))))
	if err != nil {
		log.Fatalf("Failed to create decoder: %v", err)
	}
	defer dec.Close()

	cfg := cache.DefaultConfig()
	cfg.MemoryLimit = *memory << 20
	caches := cache.NewSceneCache(scene, cfg)
	defer caches.InvalidateAll()

	frameOpts := []render.FrameOption{
		render.WithChannel(*channel),
		render.WithMissingMedia(*missing),
	}
	if *proxy {
		frameOpts = append(frameOpts, render.WithProxy())
	}
	comp := render.NewCompositor(scene, caches, render.WithDecoder(dec))

	first, last := scene.Start, scene.End
	if *start != 0 {
		first = *start
	}
	if *end != 0 {
		last = *end
	}

	if *ahead {
		p := prefetch.New(caches,
			prefetch.WithRenderOptions(render.WithDecoder(dec)),
			prefetch.WithFrameOptions(frameOpts...))
		t0 := time.Now()
		p.Start(ctx, float64(first))
		p.Wait()
		from, to := p.TimeRange()
		seqrender.Logger().Info("prefetched", "from", from, "to", to, "elapsed", time.Since(t0), "bytes", caches.Bytes())
		defer p.Stop()
	}

	for fr := first; fr <= last && ctx.Err() == nil; fr++ {
		img := comp.RenderFrame(ctx, float64(fr), frameOpts...)
		if img == nil {
			log.Fatalf("Failed to render frame %d", fr)
		}
		err := writePNG(fmt.Sprintf(*output, fr), img)
		img.Release()
		if err != nil {
			log.Fatalf("Failed to save frame %d: %v", fr, err)
		}
	}

	st := comp.Stats()
	cs := caches.Stats()
	log.Printf("Rendered frames %d-%d: %d renders, %d final hits, %d strip renders, source hit rate %.2f\n",
		first, last, st.Renders, st.FinalHits, st.StripRenders, cs.Source.HitRate)

	if *thumbs != "" {
		if err := writeThumbnails(ctx, scene, caches.Thumbnails, dec, *thumbs); err != nil {
			log.Fatalf("Failed to write thumbnails: %v", err)
		}
	}
}

func writePNG(path string, img *seqrender.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.RGBA()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeThumbnails decodes the first frame of every source strip through the
// thumbnail job and saves it under dir.
func writeThumbnails(ctx context.Context, scene *seqrender.Scene, tc *cache.ThumbnailCache, opener media.Opener, dir string) error {
	var reqs []cache.ThumbnailRequest
	for _, s := range scene.Timeline.Strips() {
		if !s.Type.HasSource() {
			continue
		}
		reqs = append(reqs, cache.ThumbnailRequest{
			Path:          s.Media.Path,
			Frame:         s.Media.StartIndex,
			Stream:        s.Media.Stream,
			Type:          s.Type,
			TimelineFrame: float64(s.Left()),
			Channel:       s.Channel,
		})
	}

	job := thumbnail.New(tc, opener)
	job.Start(ctx)
	for _, r := range reqs {
		if img := tc.Get(r); img != nil {
			img.Release()
		}
	}
	job.Wait()
	job.Stop()

	for i, r := range reqs {
		img := tc.Get(r)
		if img == nil {
			seqrender.Logger().Warn("no thumbnail", "path", r.Path)
			continue
		}
		err := writePNG(filepath.Join(dir, fmt.Sprintf("thumb_%03d.png", i)), img)
		img.Release()
		if err != nil {
			return err
		}
	}
	return nil
}
