package posts

// VoteResult reports the count after a mutation and which operation ran.
// Upvoted mirrors the operation (true after an increment, false after a
// decrement); it is not derived from the resulting count.
type VoteResult struct {
	Count   int
	Upvoted bool
}

// ApplyUpvote returns the vote count after an increment. There is no upper
// bound.
func ApplyUpvote(count int) VoteResult {
	return VoteResult{Count: count + 1, Upvoted: true}
}

// ApplyRemoveUpvote returns the vote count after a decrement, floored at
// zero. Decrementing at zero is a no-op, not an error.
func ApplyRemoveUpvote(count int) VoteResult {
	if count > 0 {
		count--
	}
	return VoteResult{Count: count, Upvoted: false}
}
