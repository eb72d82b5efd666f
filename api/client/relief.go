package client

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/aadhaar-relief/aadhaar"
	"github.com/vocdoni/aadhaar-relief/api"
	"github.com/vocdoni/aadhaar-relief/crypto/ethereum"
	"github.com/vocdoni/aadhaar-relief/types"
)

// decodeResponse unmarshals a successful response into out. Error responses
// are returned as api.Error, carrying the code of the api error table.
func decodeResponse(data []byte, status int, out any) error {
	if status != http.StatusOK {
		apiErr := api.Error{}
		if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Code == 0 {
			return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
		}
		apiErr.HTTPstatus = status
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

func (c *HTTPclient) get(out any, query url.Values, urlPath ...string) error {
	data, status, err := c.Request(http.MethodGet, nil, query, urlPath...)
	if err != nil {
		return err
	}
	return decodeResponse(data, status, out)
}

// post signs the request and sends it.
func (c *HTTPclient) post(out any, req api.Signable, signer *ethereum.SignKeys, urlPath string) error {
	if err := api.SignRequest(req, signer); err != nil {
		return err
	}
	data, status, err := c.Request(http.MethodPost, req, nil, urlPath)
	if err != nil {
		return err
	}
	return decodeResponse(data, status, out)
}

func campaignPath(endpoint string, id types.CampaignID) string {
	return api.EndpointWithParam(endpoint, api.CampaignURLParam, id.String())
}

// Operator returns the operator address and the claim parameters.
func (c *HTTPclient) Operator() (*api.OperatorResponse, error) {
	resp := &api.OperatorResponse{}
	if err := c.get(resp, nil, api.OperatorEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// Campaigns lists every campaign.
func (c *HTTPclient) Campaigns() (*api.CampaignsResponse, error) {
	resp := &api.CampaignsResponse{}
	if err := c.get(resp, nil, api.CampaignsEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// Campaign returns the campaign details.
func (c *HTTPclient) Campaign(id types.CampaignID) (*types.Campaign, error) {
	resp := &types.Campaign{}
	if err := c.get(resp, nil, campaignPath(api.CampaignEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// CampaignIDsByPincode lists the ids of the campaigns requiring the pincode.
func (c *HTTPclient) CampaignIDsByPincode(pincode uint64) ([]types.CampaignID, error) {
	resp := &api.CampaignIDsResponse{}
	path := api.EndpointWithParam(api.CampaignsByPincodeEndpoint, api.PincodeURLParam, fmt.Sprint(pincode))
	if err := c.get(resp, nil, path); err != nil {
		return nil, err
	}
	return resp.CampaignIDs, nil
}

// EligibleCampaigns lists the active campaigns with their eligibility for
// the pincode and nullifier.
func (c *HTTPclient) EligibleCampaigns(pincode uint64, nullifier *big.Int) ([]*types.EligibleCampaign, error) {
	resp := &api.EligibleCampaignsResponse{}
	query := url.Values{}
	query.Set(api.PincodeQueryParam, fmt.Sprint(pincode))
	query.Set(api.NullifierQueryParam, nullifier.String())
	if err := c.get(resp, query, api.EligibleCampaignsEndpoint); err != nil {
		return nil, err
	}
	return resp.Campaigns, nil
}

// Claims returns the claim history of the campaign.
func (c *HTTPclient) Claims(id types.CampaignID) ([]*types.ClaimRecord, error) {
	resp := &api.ClaimsResponse{}
	if err := c.get(resp, nil, campaignPath(api.CampaignClaimsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp.Claims, nil
}

// IsClaimed reports whether the nullifier claimed from the campaign.
func (c *HTTPclient) IsClaimed(id types.CampaignID, nullifier *big.Int) (bool, error) {
	resp := &api.ClaimStatusResponse{}
	path := api.EndpointWithParam(campaignPath(api.ClaimStatusEndpoint, id), api.NullifierURLParam, nullifier.String())
	if err := c.get(resp, nil, path); err != nil {
		return false, err
	}
	return resp.Claimed, nil
}

// RegisterCampaign registers a campaign, signed by the operator key.
func (c *HTTPclient) RegisterCampaign(req *api.RegisterCampaignRequest, operator *ethereum.SignKeys) (*types.Campaign, error) {
	resp := &types.Campaign{}
	if err := c.post(resp, req, operator, api.CampaignsEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// AddFunds donates value to the campaign. The depositTx is the hash of the
// transfer of value from the donor to the hot wallet, it may only be nil if
// the donor is the operator.
func (c *HTTPclient) AddFunds(id types.CampaignID, value *big.Int, depositTx *common.Hash,
	donor *ethereum.SignKeys,
) (*types.Campaign, error) {
	resp := &types.Campaign{}
	req := &api.DonationRequest{CampaignID: id, Value: types.NewBigInt(value), DepositTx: depositTx}
	if err := c.post(resp, req, donor, campaignPath(api.CampaignFundsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// SetCampaignStatus activates or deactivates the campaign.
func (c *HTTPclient) SetCampaignStatus(id types.CampaignID, active bool, operator *ethereum.SignKeys) (*types.Campaign, error) {
	resp := &types.Campaign{}
	req := &api.StatusRequest{CampaignID: id, Active: active}
	if err := c.post(resp, req, operator, campaignPath(api.CampaignStatusEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// ClaimFunds claims the relief amount of the campaign. The claimant key
// must be the one bound to the proof signal.
func (c *HTTPclient) ClaimFunds(id types.CampaignID, proof *aadhaar.ProofAssertion,
	claimant *ethereum.SignKeys,
) (*types.ClaimRecord, error) {
	resp := &types.ClaimRecord{}
	req := &api.ClaimRequest{CampaignID: id, Proof: proof}
	if err := c.post(resp, req, claimant, campaignPath(api.CampaignClaimsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Activity returns up to limit of the most recent ledger events.
func (c *HTTPclient) Activity(limit int) (*api.ActivityResponse, error) {
	resp := &api.ActivityResponse{}
	query := url.Values{api.LimitQueryParam: {fmt.Sprint(limit)}}
	if err := c.get(resp, query, api.ActivityEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}
