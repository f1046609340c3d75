package index

// Sep separates reference records in the concatenated text and the two
// strand halves of the index text. It never appears in a k-mer, so
// matches cannot cross it. The fmi library appends a '$' sentinel and
// requires it to be the smallest symbol in the text, so Sep must
// collate after '$'.
const Sep = 'Z'

var comp = func() [256]byte {
	var t [256]byte
	for i := range t {
		t[i] = 'N'
	}
	t['A'], t['C'], t['G'], t['T'] = 'T', 'G', 'C', 'A'
	t[Sep] = Sep
	return t
}()

// IndexText builds the text the FM index is constructed over:
// reverse(t) Sep complement(t). See reference.go for the layout contract.
func IndexText(t []byte) []byte {
	n := len(t)
	out := make([]byte, 2*n+1)
	for i := 0; i < n; i++ {
		out[i] = t[n-1-i]
	}
	out[n] = Sep
	for i := 0; i < n; i++ {
		out[n+1+i] = comp[t[i]]
	}
	return out
}

// Complement returns the complement of a single base.
func Complement(b byte) byte {
	return comp[b]
}
