// Package input reads the text a scan is run over.
//
// Sources are decoded as UTF-8 unless they start with a UTF-16 byte order
// mark, in which case they are converted from UTF-16. A UTF-8 BOM is
// stripped. Invalid UTF-8 sequences become U+FFFD, which can never be part
// of a key, so they split candidates rather than hide them.
package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Stdin is the path that selects standard input in ReadSources.
const Stdin = "-"

// ErrInputTooLarge is returned when the input exceeds the size limit.
var ErrInputTooLarge = errors.New("input exceeds size limit")

// Read reads all of r and decodes it to a string. Input larger than limit
// bytes is rejected with ErrInputTooLarge; a non-positive limit disables
// the check.
func Read(r io.Reader, limit int64) (string, error) {
	raw, err := readRaw(r, limit)
	if err != nil {
		return "", err
	}
	return decode(raw)
}

// readRaw reads all of r, failing once more than limit bytes arrive.
func readRaw(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, limit)
	}
	return raw, nil
}

// decode converts raw bytes to UTF-8 text, honoring a leading BOM.
func decode(raw []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode input: %w", err)
	}
	return string(out), nil
}

// ReadSources reads every path in order and joins the texts with newlines.
// The path "-" reads from stdin; no paths at all also means stdin.
// The limit applies to the combined raw size of all sources, before
// decoding.
func ReadSources(ctx context.Context, paths []string, stdin io.Reader, limit int64) (string, error) {
	if len(paths) == 0 {
		paths = []string{Stdin}
	}

	texts := make([]string, 0, len(paths))
	var used int64

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		remaining := int64(0)
		if limit > 0 {
			remaining = limit - used
			if remaining <= 0 {
				return "", fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, limit)
			}
		}

		raw, err := readSource(path, stdin, remaining)
		if err != nil {
			if errors.Is(err, ErrInputTooLarge) {
				return "", fmt.Errorf("%w (%d bytes)", ErrInputTooLarge, limit)
			}
			return "", fmt.Errorf("failed to read %s: %w", displayName(path), err)
		}
		used += int64(len(raw))

		text, err := decode(raw)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", displayName(path), err)
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, "\n"), nil
}

func readSource(path string, stdin io.Reader, limit int64) ([]byte, error) {
	if path == Stdin {
		if stdin == nil {
			return nil, nil
		}
		return readRaw(stdin, limit)
	}

	f, err := os.Open(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	return readRaw(f, limit)
}

func displayName(path string) string {
	if path == Stdin {
		return "stdin"
	}
	return path
}
