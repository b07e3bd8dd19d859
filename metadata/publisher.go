// Package metadata publishes the off-registry documents that records point
// to, and computes the checksum stored next to their URI.
package metadata

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	files "github.com/ipfs/boxo/files"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/audit-registry/interfaces"
)

const ipfsScheme = "ipfs://"

var (
	ErrChecksumMismatch = errors.New("metadata checksum mismatch")
	ErrUnsupportedURI   = errors.New("metadata URI is not an ipfs:// URI")
	ErrPublisherOffline = errors.New("IPFS node unavailable")
)

// Checksum returns the integrity value recorded for doc.
func Checksum(doc []byte) interfaces.Checksum {
	return interfaces.Checksum(sha256.Sum256(doc))
}

// Verify checks doc against a recorded checksum.
func Verify(doc []byte, sum interfaces.Checksum) error {
	if Checksum(doc) != sum {
		return ErrChecksumMismatch
	}
	return nil
}

// Publisher adds metadata documents to an IPFS node.
type Publisher struct {
	shell  *shell.Shell
	apiURL string
	log    *slog.Logger
}

// NewPublisher creates a publisher talking to the IPFS HTTP API at apiURL
// (for example "127.0.0.1:5001").
func NewPublisher(apiURL string, log *slog.Logger) *Publisher {
	return &Publisher{
		shell:  shell.NewShell(apiURL),
		apiURL: apiURL,
		log:    log,
	}
}

// Publish adds doc to IPFS and returns its ipfs:// URI and checksum, ready
// to be stored in a record.
func (p *Publisher) Publish(ctx context.Context, doc []byte) (string, interfaces.Checksum, error) {
	start := time.Now()
	sum := Checksum(doc)

	if err := p.available(ctx); err != nil {
		return "", sum, err
	}

	entry := files.FileEntry("", files.NewReaderFile(bytes.NewReader(doc)))
	body := files.NewMultiFileReader(files.NewSliceDirectory([]files.DirEntry{entry}), true, false)

	var out struct{ Hash string }
	if err := p.shell.Request("add").Option("pin", true).Body(body).Exec(ctx, &out); err != nil {
		return "", sum, fmt.Errorf("failed to add metadata to IPFS: %w", err)
	}
	if out.Hash == "" {
		return "", sum, errors.New("IPFS add returned no CID")
	}

	uri := ipfsScheme + out.Hash
	if len(uri) > interfaces.URILimit {
		return "", sum, interfaces.ErrURITooLong
	}

	p.log.Debug("Published metadata to IPFS",
		slog.String("uri", uri),
		slog.String("checksum", sum.String()),
		slog.Int("size", len(doc)),
		slog.Duration("duration", time.Since(start)))

	return uri, sum, nil
}

// Fetch downloads the document behind an ipfs:// URI.
func (p *Publisher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, ipfsScheme) {
		return nil, ErrUnsupportedURI
	}

	resp, err := p.shell.Request("cat", "/ipfs/"+strings.TrimPrefix(uri, ipfsScheme)).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata from IPFS: %w", err)
	}
	defer resp.Close()
	if resp.Error != nil {
		return nil, fmt.Errorf("failed to fetch metadata from IPFS: %w", resp.Error)
	}

	doc, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata from IPFS: %w", err)
	}
	return doc, nil
}

func (p *Publisher) available(ctx context.Context) error {
	var version struct{ Version string }
	if err := p.shell.Request("version").Exec(ctx, &version); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.log.Debug("IPFS node unavailable", slog.String("api", p.apiURL), "err", err)
		return ErrPublisherOffline
	}
	return nil
}

// FetchVerified downloads the document behind uri and checks it against sum.
func (p *Publisher) FetchVerified(ctx context.Context, uri string, sum interfaces.Checksum) ([]byte, error) {
	doc, err := p.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	if err := Verify(doc, sum); err != nil {
		return nil, err
	}
	return doc, nil
}
