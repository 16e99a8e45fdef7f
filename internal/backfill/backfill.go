// Package backfill reconciles database document records with their disk
// copies. Older deployments stored uploads on disk only; this pass loads the
// bytes back into the store and copies stray files forward to the canonical
// storage root so later lookups take the fast path.
package backfill

import (
	"context"
	"mime"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sells-group/vendor-portal/internal/storage"
	"github.com/sells-group/vendor-portal/internal/store"
)

// Result summarizes one backfill pass.
type Result struct {
	Scanned  int
	Restored int
	Missing  int
	Failed   int
}

// Run finds every document with empty content, locates its disk copy and
// persists the bytes plus a MIME-type guess. Located files outside the
// canonical root are copied forward. Individual failures are logged and the
// pass continues; only listing the candidates can fail the whole run.
func Run(ctx context.Context, st store.Store, resolver *storage.Resolver) (Result, error) {
	var res Result
	docs, err := st.ListDocumentsMissingContent(ctx)
	if err != nil {
		return res, err
	}
	res.Scanned = len(docs)

	for _, doc := range docs {
		path, data, ok := resolver.Locate(doc.VendorID, doc.Filename)
		if !ok {
			res.Missing++
			continue
		}

		mimeType := doc.MIMEType
		if mimeType == "" {
			mimeType = GuessMIME(doc.Filename)
		}
		if err := st.SetDocumentContent(ctx, doc.ID, data, mimeType); err != nil {
			res.Failed++
			zap.L().Warn("backfill: persist content failed",
				zap.String("document_id", doc.ID),
				zap.Error(err))
			continue
		}
		res.Restored++

		if inCanonical := filepath.Dir(path) == filepath.Join(resolver.CanonicalRoot(), doc.VendorID); !inCanonical {
			if _, err := resolver.Write(doc.VendorID, doc.Filename, data); err != nil {
				zap.L().Warn("backfill: copy forward failed",
					zap.String("document_id", doc.ID),
					zap.String("found_at", path),
					zap.Error(err))
			}
		}

		zap.L().Info("backfill: restored document content",
			zap.String("document_id", doc.ID),
			zap.String("vendor_id", doc.VendorID),
			zap.String("path", path),
			zap.Int("bytes", len(data)))
	}
	return res, nil
}

// GuessMIME maps a filename extension to a MIME type, defaulting to
// application/octet-stream.
func GuessMIME(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "application/octet-stream"
}
