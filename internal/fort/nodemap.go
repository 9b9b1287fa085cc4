package fort

import (
	"bufio"
	"fmt"
	"os"
	"sort"
)

// WriteNodeMap persists a subdomain-to-fulldomain identifier map (py.140 for
// nodes, py.141 for elements): a header line followed by "sub full" pairs in
// ascending subdomain order.
func WriteNodeMap(path, header string, m map[int]int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, header)
	for _, k := range keys {
		fmt.Fprintf(w, "%d %d\n", k, m[k])
	}
	return w.Flush()
}

// ReadNodeMap parses a map file written by WriteNodeMap. The header line is
// skipped.
func ReadNodeMap(path string) (map[int]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ls := newLineScanner(f)
	if ls.s.Scan() {
		ls.n++ // header
	}

	m := make(map[int]int)
	for {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}
		if len(fields) < 2 {
			return nil, ls.errf("map record needs sub and full ids")
		}
		sub, err1 := parseInt(fields[0])
		full, err2 := parseInt(fields[1])
		if err1 != nil || err2 != nil {
			return nil, ls.errf("bad map record")
		}
		m[sub] = full
	}
	return m, nil
}
