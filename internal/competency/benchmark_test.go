package competency_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/store"
)

// wideTree returns a framework with fanout children under each of depth
// levels, as raw CSV lines in the default column order.
func wideTree(fanout, depth int) [][]string {
	lines := [][]string{frameworkLine("fw", "Framework")}
	parents := []string{"fw"}
	for d := 0; d < depth; d++ {
		var next []string
		for _, p := range parents {
			for i := 0; i < fanout; i++ {
				id := fmt.Sprintf("%s.%d", p, i)
				lines = append(lines, compLine(p, id, "Competency "+id))
				next = append(next, id)
			}
		}
		parents = next
	}
	return lines
}

func benchmarkBuildTree(b *testing.B, linker competency.Linker) {
	rows := mapRows(wideTree(10, 3)...)
	opts := competency.TreeOptions{Linker: linker}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := competency.BuildTree(rows, opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBuildTree_Index groups children by parent once.
func BenchmarkBuildTree_Index(b *testing.B) {
	benchmarkBuildTree(b, competency.LinkIndex)
}

// BenchmarkBuildTree_Scan rescans all records per parent.
func BenchmarkBuildTree_Scan(b *testing.B) {
	benchmarkBuildTree(b, competency.LinkScan)
}

func BenchmarkReadCSV(b *testing.B) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(competency.RequiredHeaders())
	_ = w.WriteAll(wideTree(10, 3))
	data := buf.Bytes()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := competency.ReadCSV(bytes.NewReader(data), competency.ReadOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkImport_Memory(b *testing.B) {
	lines := wideTree(10, 2)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		im := competency.NewImporter(store.NewMemory(), competency.RequiredHeaders(), lines, competency.ImportOptions{})
		if _, err := im.Import(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
