package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// TagReader reads the raw tag values of one file.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (map[Tag][]string, error)
}

// Extractor turns files into attribute records.
type Extractor struct {
	reader TagReader
	dict   *Dictionary
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil dictionary selects the default.
func NewExtractor(reader TagReader, dict *Dictionary, logger *slog.Logger) *Extractor {
	if dict == nil {
		dict = DefaultDictionary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{reader: reader, dict: dict, logger: logger}
}

// Extract reads one file. Size and checksum come from the file bytes, all
// other keys from the dictionary's tags.
//
// When required keys are absent the partial record is returned together with
// an *IncompleteRecordError. Any read or parse failure yields an
// *UnreadableSourceError and an empty record.
func (e *Extractor) Extract(ctx context.Context, ref FileRef) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	size, digest, err := FileDigest(string(ref))
	if err != nil {
		return Record{}, &UnreadableSourceError{Ref: ref, Err: err}
	}

	tags, err := e.reader.ReadTags(ctx, string(ref))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Record{}, ctxErr
		}
		return Record{}, &UnreadableSourceError{Ref: ref, Err: err}
	}

	rec := Record{ref: ref}
	for _, k := range Keys() {
		rec.values[k] = e.lookup(ref, k, tags)
	}
	rec.values[KeyFileSize] = IntValue(size)
	rec.values[KeyChecksum] = StringValue(digest)

	if missing := rec.Missing(RequiredKeys...); len(missing) > 0 {
		return rec, &IncompleteRecordError{Ref: ref, Missing: missing}
	}
	return rec, nil
}

// lookup returns the first usable value among k's tags.
func (e *Extractor) lookup(ref FileRef, k Key, tags map[Tag][]string) Value {
	for _, tag := range e.dict.Tags(k) {
		raw := firstNonEmpty(tags[tag])
		if raw == "" {
			continue
		}
		switch k.Kind() {
		case KindInteger:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				e.logger.Debug("Ignoring non-integer tag value",
					"file", ref, "key", k.String(), "tag", tag.String(), "value", raw)
				continue
			}
			return IntValue(n)
		default:
			return StringValue(raw)
		}
	}
	return Absent()
}

// firstNonEmpty returns the first value that is not blank after trimming
// DICOM padding.
func firstNonEmpty(values []string) string {
	for _, v := range values {
		if s := strings.Trim(v, " \x00"); s != "" {
			return s
		}
	}
	return ""
}

// FileDigest returns the size and hex SHA-256 digest of a file.
func FileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, "", err
	}
	if info.IsDir() {
		return 0, "", fmt.Errorf("%s is a directory", path)
	}

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
