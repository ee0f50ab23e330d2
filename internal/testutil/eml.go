package testutil

import (
	"encoding/base64"
	"strings"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// BuildEML renders a multipart/mixed message with a short text body and the
// given attachments, base64 encoded.
func BuildEML(messageID, subject string, attachments ...Attachment) []byte {
	var b strings.Builder
	b.WriteString("Message-ID: " + messageID + "\r\n")
	b.WriteString("From: HR <hr@example.com>\r\n")
	b.WriteString("To: intake@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: Tue, 02 Jan 2024 10:00:00 +0000\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n\r\n")
	b.WriteString("--BOUNDARY\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Please find the signed forms attached.\r\n")
	for _, att := range attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/pdf"
		}
		b.WriteString("--BOUNDARY\r\n")
		b.WriteString("Content-Type: " + contentType + "; name=\"" + att.Filename + "\"\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"" + att.Filename + "\"\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		encoded := base64.StdEncoding.EncodeToString(att.Content)
		for len(encoded) > 76 {
			b.WriteString(encoded[:76] + "\r\n")
			encoded = encoded[76:]
		}
		b.WriteString(encoded + "\r\n")
	}
	b.WriteString("--BOUNDARY--\r\n")
	return []byte(b.String())
}
