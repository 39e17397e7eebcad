// Package crawl drives the bounded-parallel blocklist crawl.
package crawl

// Partition splits nodes into contiguous batches of chunkSize, the final
// batch possibly smaller. Batch order matches input order and no node is
// dropped or duplicated. Batches share the backing array of nodes; callers
// must treat the input as read-only for the duration of the run.
func Partition(nodes []string, chunkSize int) [][]string {
	if chunkSize <= 0 || len(nodes) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(nodes)+chunkSize-1)/chunkSize)
	for start := 0; start < len(nodes); start += chunkSize {
		end := start + chunkSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batches = append(batches, nodes[start:end])
	}
	return batches
}
