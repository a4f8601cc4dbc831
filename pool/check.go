package pool

import (
	"crypto/sha1" //nolint:gosec // content identifier, not an authentication primitive.
	"encoding/hex"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/kesh-io/satchel/object"
)

// CheckResult is one outcome from a Check pass.
type CheckResult struct {
	Ref object.Ref
	OK  bool
	Err error
}

// Check streams every object in the pool and recomputes its hash,
// reporting any mismatch between stored content and the ref naming it.
// It never mutates the pool: a mismatch here indicates bitrot or manual
// tampering, not anything Check itself should try to fix.
func (p *Pool) Check() (<-chan CheckResult, error) {
	refs, err := p.List()
	if err != nil {
		return nil, err
	}
	out := make(chan CheckResult)
	go func() {
		defer close(out)
		for ref := range refs {
			out <- p.checkOne(ref)
		}
	}()
	return out, nil
}

func (p *Pool) checkOne(ref object.Ref) CheckResult {
	r, err := p.Open(ref)
	if err != nil {
		return CheckResult{Ref: ref, Err: err}
	}
	defer r.Close()

	hasher := sha1.New() //nolint:gosec
	buf := make([]byte, 4096)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return CheckResult{Ref: ref, Err: rerr}
		}
	}
	computed := object.Ref(hex.EncodeToString(hasher.Sum(nil)))
	if computed != ref {
		log.WithFields(log.Fields{"ref": ref, "computed": computed}).Error("pool: check: hash mismatch")
		return CheckResult{Ref: ref, Err: ErrIntegrity}
	}
	return CheckResult{Ref: ref, OK: true}
}
