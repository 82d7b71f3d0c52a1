package archive

import (
	"fmt"
	"io"
)

// CopyMember streams the named member of src into dst as destName. The
// compressed bytes are copied as-is, so the payload is never decompressed or
// held in memory, and the result is byte-identical to the source member.
func CopyMember(src *Reader, name string, dst *Writer, destName string) (int64, error) {
	f, err := src.member(name)
	if err != nil {
		return 0, err
	}
	if err := dst.claim(destName); err != nil {
		return 0, err
	}

	raw, err := f.OpenRaw()
	if err != nil {
		return 0, fmt.Errorf("opening member %s: %w", name, err)
	}

	// Same as zip.Writer.Copy, under a possibly different name. The source
	// timestamps are kept.
	hdr := f.FileHeader
	hdr.Name = destName
	out, err := dst.zw.CreateRaw(&hdr)
	if err != nil {
		return 0, fmt.Errorf("creating member %s: %w", destName, err)
	}
	if _, err := io.Copy(out, raw); err != nil {
		return 0, fmt.Errorf("copying member %s: %w", name, err)
	}

	size := int64(f.UncompressedSize64)
	dst.bytes += size
	return size, nil
}
