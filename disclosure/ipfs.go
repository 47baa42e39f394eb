package disclosure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// IPFSSink pins payloads through an ipfs http api, the cid is the content reference
type IPFSSink struct {
	client *resty.Client
}

type ipfsAddResult struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// NewIPFSSink new ipfs sink
func NewIPFSSink(config *params.DisclosureConfig) *IPFSSink {
	client := resty.New().
		SetHostURL(strings.TrimSuffix(config.IPFSAPI, "/")).
		SetTimeout(time.Duration(config.Timeout) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)
	return &IPFSSink{client: client}
}

// Publish implements Sink
func (s *IPFSSink) Publish(payload *types.DisclosurePayload) (string, error) {
	data, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}
	resp, err := s.client.R().
		SetQueryParam("pin", "true").
		SetQueryParam("cid-version", "1").
		SetFileReader("file", payload.OrderID+".json", bytes.NewReader(data)).
		Post("/api/v0/add")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: ipfs status %v %v", ErrPublishFailed, resp.StatusCode(), resp.String())
	}
	var result ipfsAddResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	if result.Hash == "" {
		return "", fmt.Errorf("%w: empty cid", ErrPublishFailed)
	}
	log.Info("[disclosure] payload pinned to ipfs", "orderID", payload.OrderID, "cid", result.Hash)
	return "ipfs://" + result.Hash, nil
}
