//
// Tencent is pleased to support the open source community by making trpc-databot-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-databot-go is licensed under the Apache License Version 2.0.
//
//

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const oboGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// OBOExchanger implements Exchanger with the standard OAuth2 on-behalf-of
// grant against an identity provider's token endpoint.
type OBOExchanger struct {
	// TokenURL is the provider's token endpoint.
	TokenURL string
	// ClientID and ClientSecret identify this application.
	ClientID     string
	ClientSecret string
	// Scope is the downstream resource scope requested for the token.
	Scope string
	// HTTPClient is used for the exchange call; http.DefaultClient if nil.
	HTTPClient *http.Client
}

type oboResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Exchange performs the on-behalf-of grant for the subject's assertion.
func (e *OBOExchanger) Exchange(ctx context.Context, subjectID, assertion string) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":          {oboGrantType},
		"client_id":           {e.ClientID},
		"client_secret":       {e.ClientSecret},
		"assertion":           {assertion},
		"scope":               {e.Scope},
		"requested_token_use": {"on_behalf_of"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var body oboResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		reason := body.ErrorDescription
		if reason == "" {
			reason = body.ErrorCode
		}
		if reason == "" {
			reason = fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)
		}
		return "", 0, fmt.Errorf("%s", reason)
	}
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}
