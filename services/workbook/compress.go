package workbook

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/workbook")

type CompressResult struct {
	// whether the file had to be repacked at the zip level because the
	// xlsx library could not parse it
	Repacked bool
	InBytes  int64
	OutBytes int64
}

// Compress re-saves a workbook through the xlsx library, which fixes
// the bloated and slightly out-of-spec containers SIPD exports, the
// ones Excel greets with a repair prompt. Files too broken to parse
// fall back to a raw zip repack.
func Compress(ctx context.Context, in, out string) (CompressResult, error) {
	_, span := tracer.Start(ctx, "Compress")
	defer span.End()

	inInfo, err := os.Stat(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat input")
		return CompressResult{}, fmt.Errorf("stat %s: %w", in, err)
	}

	result := CompressResult{InBytes: inInfo.Size()}

	f, err := excelize.OpenFile(in)
	if err == nil {
		defer f.Close()
		err = f.SaveAs(out)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to rewrite workbook")
			return result, fmt.Errorf("rewrite %s: %w", out, err)
		}
	} else {
		slog.Warn("workbook is unparseable, repacking the raw container", "file", in, "err", err)
		err = repackZip(in, out)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to repack container")
			return result, err
		}
		result.Repacked = true
	}

	outInfo, err := os.Stat(out)
	if err != nil {
		return result, fmt.Errorf("stat %s: %w", out, err)
	}
	result.OutBytes = outInfo.Size()
	return result, nil
}

// repackZip copies every readable entry of the container into a fresh
// zip, dropping whatever trailing garbage or bogus headers the
// exporter left behind.
func repackZip(in, out string) error {
	reader, err := zip.OpenReader(in)
	if err != nil {
		return fmt.Errorf("open container %s: %w", in, err)
	}
	defer reader.Close()

	outFile, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer outFile.Close()

	writer := zip.NewWriter(outFile)
	for _, entry := range reader.File {
		src, err := entry.Open()
		if err != nil {
			slog.Warn("skipping unreadable container entry", "entry", entry.Name, "err", err)
			continue
		}
		dst, err := writer.Create(entry.Name)
		if err != nil {
			src.Close()
			return fmt.Errorf("repack entry %s: %w", entry.Name, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return fmt.Errorf("repack entry %s: %w", entry.Name, err)
		}
	}
	return writer.Close()
}
