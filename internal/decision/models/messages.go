package models

import "fmt"

// DefaultDeclineReason is used when the provider gives no reason.
const DefaultDeclineReason = "Motivo não informado"

// Messages holds the texts sent for each notifying status.
type Messages struct {
	Approved     string
	Declined     string // formatted with the reason
	Resubmission string
	Expired      string
}

// DefaultMessages are the Portuguese texts used by the WhatsApp bot flow.
func DefaultMessages() Messages {
	return Messages{
		Approved:     "✅ Sua identidade foi verificada com sucesso! Obrigado por concluir a verificação.",
		Declined:     "❌ Não foi possível verificar sua identidade. Motivo: %s",
		Resubmission: "⚠️ Precisamos que você envie seus documentos novamente. Abra o link de verificação e tente outra vez, com boa iluminação e sem reflexos.",
		Expired:      "⌛ Sua sessão de verificação expirou. Solicite um novo link para continuar.",
	}
}

// Render returns the body for status and whether one exists.
func (m Messages) Render(status Status, reason string) (string, bool) {
	switch status {
	case StatusApproved:
		return m.Approved, true
	case StatusDeclined:
		if reason == "" {
			reason = DefaultDeclineReason
		}
		return fmt.Sprintf(m.Declined, reason), true
	case StatusResubmissionRequested:
		return m.Resubmission, true
	case StatusExpired, StatusAbandoned:
		return m.Expired, true
	default:
		return "", false
	}
}
