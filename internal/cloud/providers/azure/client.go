// Package azure implements the blob-style StageStorage variants.
// This file contains the Azure blob client factory.
package azure

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/stagelink/stagelink/internal/cloud/stage"
	"github.com/stagelink/stagelink/internal/config"
	"github.com/stagelink/stagelink/internal/http"
)

// newClient builds a fresh blob service client for one logical operation from
// the stage coordinates. The service URL is
// https://{account}.{endpoint}/?{sas}; with no SAS token the client is
// anonymous. Clients are deliberately not pooled or cached; see the
// internal/http package doc for the policy.
//
// The retry policy lives in the HTTP transport, so the SDK retry pipeline is
// disabled (MaxRetries -1 means a single attempt).
func newClient(cfg *config.Config, info *stage.Info) (*azblob.Client, error) {
	httpClient, err := http.NewTransportClient(cfg, cfg.Parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport client: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.%s/", info.Account, info.Endpoint)
	if sas := info.Credentials[stage.CredAzureSAS]; sas != "" {
		serviceURL += "?" + strings.TrimPrefix(sas, "?")
	}

	client, err := azblob.NewClientWithNoCredential(serviceURL, &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: httpClient,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return client, nil
}
