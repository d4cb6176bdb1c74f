package stake

import "errors"

var (
	ErrZeroValue            = errors.New("stake: value must be positive")
	ErrInvalidLock          = errors.New("stake: lock must end within the allowed period")
	ErrInvalidLockExtension = errors.New("stake: lock extension out of range")
	ErrStillLocked          = errors.New("stake: stake is still locked")
	ErrValueExceedsStake    = errors.New("stake: value exceeds staked amount")
	ErrInsufficientBalance  = errors.New("stake: insufficient flexible balance")
	ErrEmptyBatch           = errors.New("stake: empty unstake batch")
	ErrYieldFlagMismatch    = errors.New("stake: yield flag does not match stake")
	ErrDestinationNotEmpty  = errors.New("stake: migration destination not empty")
	ErrNotFactory           = errors.New("stake: caller is not the factory")
	ErrNotRouter            = errors.New("stake: caller is not the reward pool")
	ErrNotVault             = errors.New("stake: caller is not the vault")
	ErrAccessDenied         = errors.New("stake: access denied")
	ErrReentrancy           = errors.New("stake: reentrant call")
	ErrTooSoon              = errors.New("stake: ratio update interval not elapsed")
	ErrUnknownPool          = errors.New("stake: pool not registered")
	ErrAlreadyMigrated      = errors.New("stake: v1 stake already ingested")
	ErrV1StakeRejected      = errors.New("stake: v1 stake not eligible")
	ErrInvalidEndTime       = errors.New("stake: end time must exceed last ratio update")
	ErrNoPoolWeight         = errors.New("stake: pool has no staked weight")
	ErrUnknownStake         = errors.New("stake: unknown stake id")
	ErrZeroAddress          = errors.New("stake: zero address")
	ErrValueTooLarge        = errors.New("stake: value exceeds maximum stake size")
)
