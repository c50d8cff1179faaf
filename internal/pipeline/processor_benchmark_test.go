package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/pixelforge/internal/domain"
)

func BenchmarkProcessFile(b *testing.B) {
	tmp := b.TempDir()
	outDir := filepath.Join(tmp, "out")
	if err := os.Mkdir(outDir, 0o755); err != nil {
		b.Fatalf("create output dir: %v", err)
	}
	src := writeFile(b, tmp, "bench.png", buildTestPNG(b, 1920, 1080))

	processor, err := NewProcessor(nil, nil)
	if err != nil {
		b.Fatalf("new processor: %v", err)
	}
	versions := []domain.Version{{Height: 400}, {Height: 200}, {Height: 80}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := processor.ProcessFile(context.Background(), src, outDir, versions); err != nil {
			b.Fatalf("process: %v", err)
		}
	}
}

func BenchmarkRenderResize(b *testing.B) {
	tmp := b.TempDir()
	src := writeFile(b, tmp, "bench.jpg", buildTestJPEG(b, 1920, 1080))
	info, err := Sniff(context.Background(), src)
	if err != nil {
		b.Fatalf("sniff: %v", err)
	}
	dst := filepath.Join(tmp, "out.jpg")
	plan := RenderPlan{TargetHeight: 200, Resize: true}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := (stdEngine{}).Render(context.Background(), info, plan, dst); err != nil {
			b.Fatalf("render: %v", err)
		}
	}
}
