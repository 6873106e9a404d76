package smsprovider

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioAdapter sends texts through the Twilio REST API.
type TwilioAdapter struct {
	client *twilio.RestClient
}

// NewTwilioAdapter creates a Twilio-backed adapter.
func NewTwilioAdapter(accountSID, authToken string) *TwilioAdapter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioAdapter{client: client}
}

func (p *TwilioAdapter) GetName() string { return "twilio" }

func (p *TwilioAdapter) Send(_ context.Context, req SendRequest) (*SendResponse, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(req.To)
	params.SetFrom(req.From)
	params.SetBody(req.Content)

	msg, err := p.client.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio send to %s: %w", req.To, err)
	}

	resp := &SendResponse{}
	if msg.Sid != nil {
		resp.ProviderMessageID = *msg.Sid
	}
	return resp, nil
}
