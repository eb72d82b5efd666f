package ledger

import "errors"

// Every ledger operation fails with one of these errors, possibly wrapped
// with some context. None of them is transient: retrying with the same
// input yields the same error.
var (
	ErrNotOwner                = errors.New("caller is not the operator")
	ErrValueMismatch           = errors.New("attached value does not match the declared amount")
	ErrInvalidPincode          = errors.New("pincode must be a positive integer")
	ErrZeroValue               = errors.New("attached value must be positive")
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignInactive        = errors.New("campaign is not active")
	ErrInsufficientPool        = errors.New("insufficient funds in the campaign pool")
	ErrStaleProof              = errors.New("proof timestamp is outside the freshness window")
	ErrSignalMismatch          = errors.New("proof signal does not match the caller")
	ErrProofVerificationFailed = errors.New("proof verification failed")
	ErrPincodeMismatch         = errors.New("revealed pincode does not match the campaign")
	ErrAlreadyClaimed          = errors.New("nullifier already claimed for this campaign")
	ErrCampaignIDOverflow      = errors.New("campaign identifiers exhausted")
	ErrTransferFailed          = errors.New("relief transfer failed")
	ErrDepositsDisabled        = errors.New("on-chain deposits are not enabled")
	ErrInvalidDeposit          = errors.New("deposit does not back the donation")
	ErrDepositAlreadyUsed      = errors.New("deposit already credited")
)

// errorLabels names each ledger error for metrics and logs.
var errorLabels = []struct {
	err   error
	label string
}{
	{ErrNotOwner, "not_owner"},
	{ErrValueMismatch, "value_mismatch"},
	{ErrInvalidPincode, "invalid_pincode"},
	{ErrZeroValue, "zero_value"},
	{ErrCampaignNotFound, "campaign_not_found"},
	{ErrCampaignInactive, "campaign_inactive"},
	{ErrInsufficientPool, "insufficient_pool"},
	{ErrStaleProof, "stale_proof"},
	{ErrSignalMismatch, "signal_mismatch"},
	{ErrProofVerificationFailed, "proof_verification_failed"},
	{ErrPincodeMismatch, "pincode_mismatch"},
	{ErrAlreadyClaimed, "already_claimed"},
	{ErrCampaignIDOverflow, "campaign_id_overflow"},
	{ErrTransferFailed, "transfer_failed"},
	{ErrDepositsDisabled, "deposits_disabled"},
	{ErrInvalidDeposit, "invalid_deposit"},
	{ErrDepositAlreadyUsed, "deposit_already_used"},
}

// ErrorLabel returns a short stable label for err: "ok" for nil, the label of
// the ledger error it wraps, or "internal" for anything else.
func ErrorLabel(err error) string {
	if err == nil {
		return "ok"
	}
	for _, e := range errorLabels {
		if errors.Is(err, e.err) {
			return e.label
		}
	}
	return "internal"
}
