package odatajson_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/creachadair/odatajson"
	"github.com/creachadair/odatajson/jsonreader"
)

// benchInput returns a resource set payload with n entities.
func benchInput(n int) []byte {
	var sb strings.Builder
	sb.WriteString(`{"@odata.context":"$metadata#People","value":[`)
	for i := range n {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"ID":%d,"Name":"person %d","Score":%d.25,"Tags":["a","b"],"@odata.type":"#NS.Person"}`, i, i, i)
	}
	sb.WriteString(`]}`)
	return []byte(sb.String())
}

func BenchmarkScanner(b *testing.B) {
	input := benchInput(1000)
	b.Logf("Benchmark input: %d bytes", len(input))

	b.Run("Decoder", func(b *testing.B) {
		for b.Loop() {
			dec := json.NewDecoder(bytes.NewReader(input))
			for {
				_, err := dec.Token()
				if err == io.EOF {
					break
				} else if err != nil {
					b.Fatalf("Unexpected error: %v", err)
				}
			}
		}
	})

	b.Run("Scanner", func(b *testing.B) {
		for b.Loop() {
			src, _ := odatajson.NewTokenSource(bytes.NewReader(input), false)
			for {
				err := src.Next()
				if err == io.EOF {
					break
				} else if err != nil {
					b.Fatalf("Unexpected error: %v", err)
				}

				// The standard library Decoder converts tokens to values.
				// For a fair comparison, do the same here.
				if src.Token().IsPrimitive() {
					src.Value()
				}
			}
		}
	})

	readers := map[string]func(odatajson.TokenSource) jsonreader.Reader{
		"Buffering": func(src odatajson.TokenSource) jsonreader.Reader {
			return jsonreader.NewBuffering(src, "error", 0)
		},
		"Reordering": func(src odatajson.TokenSource) jsonreader.Reader {
			return jsonreader.NewReordering(src, 0)
		},
	}
	for name, newReader := range readers {
		b.Run(name, func(b *testing.B) {
			for b.Loop() {
				src, _ := odatajson.NewTokenSource(bytes.NewReader(input), false)
				r := newReader(src)
				for {
					n, err := r.Read()
					if err != nil {
						b.Fatalf("Unexpected error: %v", err)
					} else if n.Type == jsonreader.EndOfInput {
						break
					}
				}
			}
		})
	}
}
