package catalog

import (
	"errors"
	"strings"
)

// ServiceCode identifies a billable unit of work.
// The catalog is closed; callers must not invent codes at runtime.
type ServiceCode string

const (
	KYCBasic         ServiceCode = "KYC_BASIC"
	KYCEnhanced      ServiceCode = "KYC_ENHANCED"
	KYCDocument      ServiceCode = "KYC_DOCUMENT"
	VoiceVerify      ServiceCode = "VOICE_VERIFY"
	VoiceCall        ServiceCode = "VOICE_CALL"
	VoiceRecording   ServiceCode = "VOICE_RECORDING"
	ComplianceReport ServiceCode = "COMPLIANCE_REPORT"
	AuditExport      ServiceCode = "AUDIT_EXPORT"
)

var ErrUnknownService = errors.New("catalog: unknown service code")

var all = []ServiceCode{
	KYCBasic,
	KYCEnhanced,
	KYCDocument,
	VoiceVerify,
	VoiceCall,
	VoiceRecording,
	ComplianceReport,
	AuditExport,
}

// All returns every catalog code in a stable order.
func All() []ServiceCode {
	out := make([]ServiceCode, len(all))
	copy(out, all)
	return out
}

func (c ServiceCode) Valid() bool {
	for _, s := range all {
		if s == c {
			return true
		}
	}
	return false
}

func (c ServiceCode) String() string { return string(c) }

// Parse accepts any casing and surrounding whitespace.
func Parse(s string) (ServiceCode, error) {
	c := ServiceCode(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownService
	}
	return c, nil
}
