package product

// Partition splits links into count contiguous, non-overlapping batches of
// size len(links)/count each. With includeRemainder false the trailing
// remainder links beyond count*(len(links)/count) are excluded entirely,
// matching truncating integer division; with it true they are appended to the
// final batch.
func Partition(links []string, count int, includeRemainder bool) [][]string {
	if count <= 0 {
		count = 1
	}
	size := len(links) / count

	batches := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		batch := append([]string(nil), links[i*size:(i+1)*size]...)
		batches = append(batches, batch)
	}

	if includeRemainder && count*size < len(links) {
		batches[count-1] = append(batches[count-1], links[count*size:]...)
	}
	return batches
}
