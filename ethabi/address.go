package ethabi

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DecodeAddress returns the low 20 bytes of a single 32-byte word.
func DecodeAddress(word string) (common.Address, error) {
	data, err := DecodeHex(word)
	if err != nil {
		return common.Address{}, err
	}
	if len(data) != WordSize {
		return common.Address{}, fmt.Errorf("%w: address word has %d bytes", ErrMalformed, len(data))
	}
	return common.BytesToAddress(data[12:]), nil
}

// DecodeAddressArray decodes a dynamic address[] return value.
// An empty result ("0x") decodes to an empty list.
func DecodeAddressArray(payload string) ([]common.Address, error) {
	data, err := DecodeHex(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []common.Address{}, nil
	}
	if len(data) < 2*WordSize {
		return nil, fmt.Errorf("%w: address array too short (%d bytes)", ErrMalformed, len(data))
	}

	offset, ok := wordUint64(wordAt(data, 0))
	if !ok {
		return nil, fmt.Errorf("%w: address array offset out of range", ErrMalformed)
	}
	lengthWord, ok := sliceAt(data, offset, WordSize)
	if !ok {
		return nil, fmt.Errorf("%w: address array offset %d beyond payload", ErrMalformed, offset)
	}
	count, ok := wordUint64(lengthWord)
	if !ok || count > uint64(len(data))/WordSize {
		return nil, fmt.Errorf("%w: address array length out of range", ErrMalformed)
	}
	body, ok := sliceAt(data, offset+WordSize, count*WordSize)
	if !ok {
		return nil, fmt.Errorf("%w: address array truncated, want %d entries", ErrMalformed, count)
	}

	addrs := make([]common.Address, 0, count)
	for i := 0; i < int(count); i++ {
		addrs = append(addrs, common.BytesToAddress(wordAt(body, i)[12:]))
	}
	return addrs, nil
}
