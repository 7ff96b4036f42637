// Package graph implements a Publisher that emails ticket notifications
// through the Microsoft Graph sendMail API.
package graph

import (
	"encoding/base64"

	"github.com/shineum/mailticket/internal/email"
)

// fileAttachmentType is the OData type of an inline file attachment.
const fileAttachmentType = "#microsoft.graph.fileAttachment"

type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject      string           `json:"subject"`
	Body         messageBody      `json:"body"`
	ToRecipients []recipient      `json:"toRecipients"`
	CcRecipients []recipient      `json:"ccRecipients,omitempty"`
	Attachments  []fileAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// tokenResponse is the OAuth2 client credentials token response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func recipients(addrs []string) []recipient {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]recipient, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: addr}})
	}
	return out
}

// buildSendMailRequest converts a notification into a sendMail request body.
// An HTML body wins over the text body when both are set.
func buildSendMailRequest(msg *email.Email) *sendMailRequest {
	body := messageBody{ContentType: "text", Content: msg.TextBody}
	if msg.HTMLBody != "" {
		body = messageBody{ContentType: "html", Content: msg.HTMLBody}
	}

	var attachments []fileAttachment
	for _, att := range msg.Attachments {
		attachments = append(attachments, fileAttachment{
			ODataType:    fileAttachmentType,
			Name:         att.Filename,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	to := recipients(msg.To)
	if to == nil {
		to = []recipient{}
	}
	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:      msg.Subject,
			Body:         body,
			ToRecipients: to,
			CcRecipients: recipients(msg.Cc),
			Attachments:  attachments,
		},
	}
}
