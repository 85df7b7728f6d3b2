package repository

// Unsubscribe releases a live listener. Calling it more than once is safe.
type Unsubscribe func()
