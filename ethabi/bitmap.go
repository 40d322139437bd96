package ethabi

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// Bit positions of the Aave V3 ReserveConfiguration bitmap.
const (
	bitLTV                   = 0
	bitLiquidationThreshold  = 16
	bitLiquidationBonus      = 32
	bitDecimals              = 48
	bitActive                = 56
	bitFrozen                = 57
	bitBorrowing             = 58
	bitStableBorrowing       = 59
	bitPaused                = 60
	bitBorrowableInIsolation = 61
	bitSiloedBorrowing       = 62
	bitFlashLoan             = 63
	bitReserveFactor         = 64
	bitBorrowCap             = 80
	bitSupplyCap             = 116
	bitLiquidationFee        = 152
	bitEModeCategory         = 168
	bitUnbackedMintCap       = 176
	bitDebtCeiling           = 212
	bitVirtualAccounting     = 252
)

const basisPoints = 10000

// ReserveConfiguration is the unpacked configuration bitmap of a reserve.
// Percentages are fractions (0.75 == 75%), caps are whole tokens and the debt
// ceiling keeps the protocol's two-decimal convention.
type ReserveConfiguration struct {
	LoanToValue            float64
	LiquidationThreshold   float64
	LiquidationBonus       float64
	Decimals               uint8
	Active                 bool
	Frozen                 bool
	BorrowingEnabled       bool
	StableBorrowingEnabled bool
	Paused                 bool
	BorrowableInIsolation  bool
	SiloedBorrowing        bool
	FlashLoanEnabled       bool
	ReserveFactor          float64
	BorrowCap              uint64
	SupplyCap              uint64
	LiquidationProtocolFee float64
	EModeCategory          uint8
	UnbackedMintCap        uint64
	DebtCeiling            uint64
	VirtualAccounting      bool
}

func bitfield(v *uint256.Int, offset, width uint) uint64 {
	mask := new(uint256.Int).Lsh(uint256.NewInt(1), width)
	mask.SubUint64(mask, 1)
	field := new(uint256.Int).Rsh(v, offset)
	return field.And(field, mask).Uint64()
}

func bitflag(v *uint256.Int, offset uint) bool {
	return bitfield(v, offset, 1) == 1
}

// DecodeConfigurationBitmap unpacks a hex encoded configuration word.
func DecodeConfigurationBitmap(word string) (ReserveConfiguration, error) {
	data, err := DecodeHex(word)
	if err != nil {
		return ReserveConfiguration{}, err
	}
	if len(data) == 0 || len(data) > WordSize {
		return ReserveConfiguration{}, fmt.Errorf("%w: configuration word has %d bytes", ErrMalformed, len(data))
	}
	return ConfigurationFromInt(new(uint256.Int).SetBytes(data)), nil
}

// ConfigurationFromInt unpacks a configuration bitmap.
func ConfigurationFromInt(v *uint256.Int) ReserveConfiguration {
	return ReserveConfiguration{
		LoanToValue:            float64(bitfield(v, bitLTV, 16)) / basisPoints,
		LiquidationThreshold:   float64(bitfield(v, bitLiquidationThreshold, 16)) / basisPoints,
		LiquidationBonus:       float64(bitfield(v, bitLiquidationBonus, 16)) / basisPoints,
		Decimals:               uint8(bitfield(v, bitDecimals, 8)),
		Active:                 bitflag(v, bitActive),
		Frozen:                 bitflag(v, bitFrozen),
		BorrowingEnabled:       bitflag(v, bitBorrowing),
		StableBorrowingEnabled: bitflag(v, bitStableBorrowing),
		Paused:                 bitflag(v, bitPaused),
		BorrowableInIsolation:  bitflag(v, bitBorrowableInIsolation),
		SiloedBorrowing:        bitflag(v, bitSiloedBorrowing),
		FlashLoanEnabled:       bitflag(v, bitFlashLoan),
		ReserveFactor:          float64(bitfield(v, bitReserveFactor, 16)) / basisPoints,
		BorrowCap:              bitfield(v, bitBorrowCap, 36),
		SupplyCap:              bitfield(v, bitSupplyCap, 36),
		LiquidationProtocolFee: float64(bitfield(v, bitLiquidationFee, 16)) / basisPoints,
		EModeCategory:          uint8(bitfield(v, bitEModeCategory, 8)),
		UnbackedMintCap:        bitfield(v, bitUnbackedMintCap, 36),
		DebtCeiling:            bitfield(v, bitDebtCeiling, 40),
		VirtualAccounting:      bitflag(v, bitVirtualAccounting),
	}
}

// Bitmap packs the configuration back into its on-chain representation.
func (c ReserveConfiguration) Bitmap() *uint256.Int {
	v := new(uint256.Int)
	set := func(value uint64, offset uint) {
		v.Or(v, new(uint256.Int).Lsh(uint256.NewInt(value), offset))
	}
	flag := func(b bool, offset uint) {
		if b {
			set(1, offset)
		}
	}
	bps := func(f float64) uint64 {
		return uint64(math.Round(f * basisPoints))
	}

	set(bps(c.LoanToValue), bitLTV)
	set(bps(c.LiquidationThreshold), bitLiquidationThreshold)
	set(bps(c.LiquidationBonus), bitLiquidationBonus)
	set(uint64(c.Decimals), bitDecimals)
	flag(c.Active, bitActive)
	flag(c.Frozen, bitFrozen)
	flag(c.BorrowingEnabled, bitBorrowing)
	flag(c.StableBorrowingEnabled, bitStableBorrowing)
	flag(c.Paused, bitPaused)
	flag(c.BorrowableInIsolation, bitBorrowableInIsolation)
	flag(c.SiloedBorrowing, bitSiloedBorrowing)
	flag(c.FlashLoanEnabled, bitFlashLoan)
	set(bps(c.ReserveFactor), bitReserveFactor)
	set(c.BorrowCap, bitBorrowCap)
	set(c.SupplyCap, bitSupplyCap)
	set(bps(c.LiquidationProtocolFee), bitLiquidationFee)
	set(uint64(c.EModeCategory), bitEModeCategory)
	set(c.UnbackedMintCap, bitUnbackedMintCap)
	set(c.DebtCeiling, bitDebtCeiling)
	flag(c.VirtualAccounting, bitVirtualAccounting)
	return v
}
