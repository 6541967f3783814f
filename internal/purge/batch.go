package purge

// DefaultBatchSize is the number of identifiers sent per bulk delete request.
const DefaultBatchSize = 100

// Chunk splits ids into consecutive batches of at most size elements. The
// final batch may be shorter. Batches share the backing array of ids.
// A non-positive size yields a single batch holding everything.
func Chunk(ids []string, size int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 || size >= len(ids) {
		return [][]string{ids[:len(ids):len(ids)]}
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}
