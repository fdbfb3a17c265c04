package mailer

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// dateFormat is RFC 1123 with an explicit GMT zone, the form mail headers
// expect.
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// composeMessage renders an RFC 5322 message with the DKIM-Signature header
// included. CRLF line endings throughout.
func composeMessage(msg *Message, date, dkimSignature string) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", msg.From)
	writeHeader(&buf, "To", msg.To)
	writeHeader(&buf, "Subject", msg.Subject)
	writeHeader(&buf, "Date", date)
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "DKIM-Signature", dkimSignature)

	switch {
	case msg.Text != "" && msg.HTML != "":
		if err := writeAlternative(&buf, msg.Text, msg.HTML); err != nil {
			return nil, err
		}
	case msg.HTML != "":
		writeHeader(&buf, "Content-Type", `text/html; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(toCRLF(msg.HTML))
	default:
		writeHeader(&buf, "Content-Type", `text/plain; charset="utf-8"`)
		buf.WriteString("\r\n")
		buf.WriteString(toCRLF(msg.Text))
	}

	return buf.Bytes(), nil
}

// writeAlternative emits a multipart/alternative body with the plain part
// first, per convention (least preferred first).
func writeAlternative(buf *bytes.Buffer, text, html string) error {
	mw := multipart.NewWriter(buf)
	writeHeader(buf, "Content-Type", fmt.Sprintf(`multipart/alternative; boundary=%q`, mw.Boundary()))
	buf.WriteString("\r\n")

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="utf-8"`},
	})
	if err != nil {
		return fmt.Errorf("composing text part: %w", err)
	}
	if _, err := textPart.Write([]byte(toCRLF(text))); err != nil {
		return fmt.Errorf("writing text part: %w", err)
	}

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="utf-8"`},
	})
	if err != nil {
		return fmt.Errorf("composing html part: %w", err)
	}
	if _, err := htmlPart.Write([]byte(toCRLF(html))); err != nil {
		return fmt.Errorf("writing html part: %w", err)
	}

	return mw.Close()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

func toCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
