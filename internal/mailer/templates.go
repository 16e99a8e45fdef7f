package mailer

import (
	"fmt"
	"html"
	"strings"

	"github.com/sells-group/vendor-portal/internal/model"
)

// The portal serves Brazilian suppliers; outbound email copy stays in
// Portuguese like the rest of the vendor-facing surface.

const emailLayout = `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="UTF-8"></head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;background-color:#f8fafc;">
<div style="max-width:600px;margin:0 auto;padding:20px;">
<div style="background:white;border-radius:12px;padding:40px 30px;text-align:center;">
<img src="cid:portal_logo" alt="Logo" style="max-width:200px;height:auto;margin-bottom:20px;">
%s
<div style="text-align:center;padding-top:20px;border-top:1px solid #e2e8f0;margin-top:30px;">
<p style="margin:0;color:#94a3b8;font-size:12px;">Portal de Fornecedores</p>
</div>
</div>
</div>
</body>
</html>`

// RecoveryEmail builds the password recovery message carrying the six-digit
// token. The token expires ten minutes after issue.
func RecoveryEmail(vendorName, token string) string {
	content := fmt.Sprintf(`<h1 style="color:#f97316;">RECUPERAÇÃO DE SENHA</h1>
<h2 style="color:#696969;">Olá, %s!</h2>
<p style="color:#64748b;">Recebemos uma solicitação para redefinir a senha da sua conta. Use o token abaixo para criar uma nova senha:</p>
<div style="background:#fef3c7;border:2px solid #f97316;border-radius:8px;padding:25px;margin:30px 0;">
<p style="color:#92400e;font-weight:600;">Seu Token de Recuperação:</p>
<div style="font-size:32px;font-weight:600;color:#f97316;letter-spacing:4px;font-family:monospace;">%s</div>
<p style="color:#92400e;font-size:14px;">Este token expira em 10 minutos</p>
</div>
<p style="color:#94a3b8;font-size:14px;">Se você não solicitou esta recuperação, ignore este e-mail.</p>`,
		html.EscapeString(vendorName), html.EscapeString(token))
	return fmt.Sprintf(emailLayout, content)
}

// DecisionEmail builds the notification sent when an admin records a
// qualification decision for a vendor.
func DecisionEmail(vendorName string, status model.Status, note string) string {
	color := "#64748b"
	switch status {
	case model.StatusApproved:
		color = "#16a34a"
	case model.StatusRejected:
		color = "#dc2626"
	}
	var noteBlock string
	if strings.TrimSpace(note) != "" {
		noteBlock = fmt.Sprintf(`<div style="background:#f1f5f9;border-radius:8px;padding:20px;margin:30px 0;text-align:left;">
<p style="color:#1e293b;font-weight:600;margin:0 0 10px 0;">Observação da análise:</p>
<p style="color:#64748b;margin:0;">%s</p>
</div>`, html.EscapeString(note))
	}
	content := fmt.Sprintf(`<h1 style="color:#f97316;">ATUALIZAÇÃO DE QUALIFICAÇÃO</h1>
<h2 style="color:#696969;">Olá, %s!</h2>
<p style="color:#64748b;">O status da sua qualificação foi atualizado para:</p>
<div style="font-size:24px;font-weight:600;color:%s;margin:25px 0;">%s</div>
%s
<p style="color:#94a3b8;font-size:14px;">Acesse o portal para consultar os detalhes da sua avaliação.</p>`,
		html.EscapeString(vendorName), color, html.EscapeString(status.Label()), noteBlock)
	return fmt.Sprintf(emailLayout, content)
}

// ContactEmail relays a message from the public contact form to the
// qualification team.
func ContactEmail(name, email, message string) string {
	content := fmt.Sprintf(`<h1 style="color:#f97316;">NOVA MENSAGEM DE CONTATO</h1>
<div style="background:#f1f5f9;border-radius:8px;padding:20px;margin:30px 0;text-align:left;">
<p style="color:#1e293b;margin:0 0 10px 0;"><strong>Nome:</strong> %s</p>
<p style="color:#1e293b;margin:0 0 10px 0;"><strong>E-mail:</strong> %s</p>
<p style="color:#64748b;margin:0;white-space:pre-line;">%s</p>
</div>`,
		html.EscapeString(name), html.EscapeString(email), html.EscapeString(message))
	return fmt.Sprintf(emailLayout, content)
}

// ReceiptEmail confirms to a vendor that their document uploads were
// received and queued for analysis.
func ReceiptEmail(vendorName string, filenames []string) string {
	items := make([]string, len(filenames))
	for i, f := range filenames {
		items[i] = "<li style=\"color:#64748b;\">" + html.EscapeString(f) + "</li>"
	}
	content := fmt.Sprintf(`<h1 style="color:#f97316;">DOCUMENTOS RECEBIDOS</h1>
<h2 style="color:#696969;">Olá, %s!</h2>
<p style="color:#64748b;">Recebemos os seguintes documentos, que entraram na fila de análise:</p>
<ul style="text-align:left;margin:25px auto;display:inline-block;">%s</ul>
<p style="color:#94a3b8;font-size:14px;">Você será notificado quando a análise for concluída.</p>`,
		html.EscapeString(vendorName), strings.Join(items, ""))
	return fmt.Sprintf(emailLayout, content)
}
