package evmtypes

import "math/big"

var big32 = big.NewInt(32)

// maxMemoryWords bounds how many words ExtractMemory will ever
// materialise for a single call, guarding against a malformed or
// adversarial trace that encodes an astronomically large offset/size
// on the stack. 1<<20 words is 32MiB, already generous for any real
// struct-log memory window.
const maxMemoryWords = 1 << 20

// ExtractMemory: given a (offset, size) pair decoded from 32-byte
// stack words and the frame's linear EVM memory
// (word-indexed), return the contiguous byte slice the EVM would see
// at that offset. Words past the end of the supplied memory slice are
// treated as zero-filled 32-byte blocks, and words shorter than 32
// bytes are zero-padded before use.
func ExtractMemory(offset, size Bytes, memory []Word) Bytes {
	sizeInt := size.Uint()
	if sizeInt.Sign() == 0 {
		return Bytes{}
	}
	offsetInt := offset.Uint()

	startWord := new(big.Int).Div(offsetInt, big32)
	endOffset := new(big.Int).Add(offsetInt, sizeInt)
	stopWord := ceilDiv(endOffset, big32)

	if !startWord.IsInt64() || !stopWord.IsInt64() {
		return zeroBytes(sizeInt)
	}
	startIdx, stopIdx := startWord.Int64(), stopWord.Int64()
	if stopIdx-startIdx > maxMemoryWords || startIdx < 0 {
		return zeroBytes(sizeInt)
	}

	buf := make([]byte, 0, (stopIdx-startIdx+1)*32)
	for i := startIdx; i <= stopIdx; i++ {
		if i >= 0 && i < int64(len(memory)) {
			buf = append(buf, memory[i][:]...)
		} else {
			buf = append(buf, make([]byte, 32)...)
		}
	}

	offsetIdx := new(big.Int).Mod(offsetInt, big32).Int64()
	if !sizeInt.IsInt64() {
		return zeroBytes(sizeInt)
	}
	endIdx := offsetIdx + sizeInt.Int64()
	if endIdx > int64(len(buf)) {
		buf = append(buf, make([]byte, endIdx-int64(len(buf)))...)
	}
	return Bytes(buf[offsetIdx:endIdx])
}

func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func zeroBytes(size *big.Int) Bytes {
	if !size.IsInt64() || size.Int64() > maxMemoryWords*32 {
		return make(Bytes, maxMemoryWords*32)
	}
	return make(Bytes, size.Int64())
}
