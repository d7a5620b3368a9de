package core

import (
	"crypto/sha256"
	"sort"
	"time"

	"github.com/illarion/pwvault/internal/entry"
	"github.com/illarion/pwvault/internal/generator"
)

const (
	MinStrongLength  = 12
	MinStrongClasses = 3
	MaxSecretAge     = 180 * 24 * time.Hour
)

// AuditReport lists entries with weak, reused or old secrets, by id.
type AuditReport struct {
	Weak   []string
	Reused [][]string // groups of ids sharing one secret
	Old    []string
}

// Clean reports whether the audit found nothing.
func (r AuditReport) Clean() bool {
	return len(r.Weak) == 0 && len(r.Reused) == 0 && len(r.Old) == 0
}

// Audit checks secrets for length and character variety, reuse across
// entries, and age. Entries without a secret are skipped.
func Audit(entries []entry.Entry, now time.Time) AuditReport {
	var report AuditReport
	groups := make(map[[sha256.Size]byte][]string)

	for _, e := range entries {
		if len(e.Secret) == 0 {
			continue
		}
		if len(e.Secret) < MinStrongLength || generator.ClassCount(e.Secret) < MinStrongClasses {
			report.Weak = append(report.Weak, e.ID)
		}

		sum := sha256.Sum256(e.Secret)
		groups[sum] = append(groups[sum], e.ID)

		changed := e.UpdatedAt
		if changed.IsZero() {
			changed = e.CreatedAt
		}
		if !changed.IsZero() && now.Sub(changed) > MaxSecretAge {
			report.Old = append(report.Old, e.ID)
		}
	}

	for _, ids := range groups {
		if len(ids) > 1 {
			sort.Strings(ids)
			report.Reused = append(report.Reused, ids)
		}
	}
	sort.Slice(report.Reused, func(i, j int) bool { return report.Reused[i][0] < report.Reused[j][0] })
	sort.Strings(report.Weak)
	sort.Strings(report.Old)
	return report
}

// Audit runs Audit over the session's entries.
func (s *Session) Audit() (AuditReport, error) {
	entries, err := s.List()
	if err != nil {
		return AuditReport{}, err
	}
	defer entry.WipeAll(entries)
	return Audit(entries, s.now()), nil
}
