package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Export writes every record as one JSON line into a zstd stream.
func Export(ctx context.Context, s Store, w io.Writer) (int, error) {
	recs, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriterSize(enc, 128*1024)
	je := json.NewEncoder(bw)
	for i, r := range recs {
		if err := je.Encode(r); err != nil {
			_ = enc.Close()
			return i, fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return len(recs), err
	}
	return len(recs), enc.Close()
}

// Import saves every record of a stream written by Export.
func Import(ctx context.Context, s Store, r io.Reader) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReaderSize(dec, 128*1024))
	n := 0
	for {
		var rec Record
		if err := jd.Decode(&rec); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, fmt.Errorf("record %d: %w", n+1, err)
		}
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := s.Save(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
}

func ExportFile(ctx context.Context, s Store, path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := Export(ctx, s, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func ImportFile(ctx context.Context, s Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Import(ctx, s, f)
}
