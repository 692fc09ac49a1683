// Package identity provides SPIFFE/SPIRE workload-identity helpers for
// authenticating IPv4 control-plane connections; a Unix-domain socket
// connection needs none (kernel-enforced filesystem permissions already
// scope it). No other package in this module calls it: ConnectionManager
// dials the control plane and the southbound socket without
// authentication.
package identity

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/spiffe/go-spiffe/v2/spiffeid"
	"github.com/spiffe/go-spiffe/v2/spiffetls/tlsconfig"
	"github.com/spiffe/go-spiffe/v2/workloadapi"
)

// Verifier authenticates a control plane's X.509-SVID against the local
// SPIRE agent before a southbound TCP connection is trusted.
type Verifier struct {
	source *workloadapi.X509Source
}

// NewVerifier connects to the SPIRE agent reachable at socketPath. A
// short timeout keeps a missing/unreachable agent from hanging stage
// startup — the caller decides whether that failure is fatal (typically
// only Unix-domain deployments can tolerate running without one).
func NewVerifier(socketPath string) (*Verifier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	source, err := workloadapi.NewX509Source(ctx, workloadapi.WithClientOptions(workloadapi.WithAddr(socketPath)))
	if err != nil {
		return nil, fmt.Errorf("identity: connecting to SPIRE agent: %w", err)
	}
	slog.Info("identity: connected to SPIRE agent", "socket_path", socketPath)
	return &Verifier{source: source}, nil
}

// VerifyControlPlaneID checks that the workload's current X.509-SVID
// matches expectedID, returning a stable hash of the certificate for
// audit logging.
func (v *Verifier) VerifyControlPlaneID(expectedID string) (uint64, error) {
	id, err := spiffeid.FromString(expectedID)
	if err != nil {
		return 0, fmt.Errorf("identity: invalid SPIFFE ID %q: %w", expectedID, err)
	}

	svid, err := v.source.GetX509SVID()
	if err != nil {
		return 0, fmt.Errorf("identity: fetching SVID: %w", err)
	}
	if svid.ID.String() != id.String() {
		return 0, fmt.Errorf("identity: SPIFFE ID mismatch: expected %s, got %s", id, svid.ID)
	}

	hash := certHash(svid.Certificates[0].Raw)
	slog.Info("identity: verified control plane SPIFFE ID", "spiffe_id", expectedID, "hash", hash)
	return hash, nil
}

func certHash(certDER []byte) uint64 {
	sum := sha256.Sum256(certDER)
	var result uint64
	for i := 0; i < 8; i++ {
		result = (result << 8) | uint64(sum[i])
	}
	return result
}

// TLSConfig returns an mTLS config authorizing any SPIFFE-identified peer
// — callers that need a narrower trust policy should wrap this with
// tlsconfig.AuthorizeID/AuthorizeMemberOf themselves.
func (v *Verifier) TLSConfig() (*tls.Config, error) {
	return tlsconfig.MTLSClientConfig(v.source, v.source, tlsconfig.AuthorizeAny()), nil
}

// Close releases the underlying workload API connection.
func (v *Verifier) Close() error {
	return v.source.Close()
}

// StageSPIFFEID renders the SPIFFE ID a data-plane stage identifies itself
// with on an IPv4 control-plane connection.
func StageSPIFFEID(trustDomain, stageName string) string {
	return fmt.Sprintf("spiffe://%s/stage/%s", trustDomain, stageName)
}
