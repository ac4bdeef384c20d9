// Package optimistic coordinates tentative state changes that are confirmed
// asynchronously.
//
// An optimistic update applies a change to caller-owned state immediately,
// runs a confirmation (usually a backend call), and then either keeps the
// change or reverts it. Many updates may be in flight at once; the Registry
// tracks each of them as an Action from registration until its confirmation
// settles.
//
// # How It Works
//
// For every Start or Execute call the registry:
//  1. Reads the current value with Snapshot (the rollback value)
//  2. Applies the tentative value with Apply
//  3. Registers an Action under a fresh ID such as "like-7"
//  4. Runs Confirm on its own goroutine
//  5. On success, removes the Action and calls OnSuccess
//  6. On failure, calls Revert with the rollback value, removes the Action,
//     emits "Action failed: <error>" through the Notifier, calls OnError and
//     returns the original error to the caller
//
// Steps 1 to 3 run on the caller's goroutine before Start returns, so the
// optimistic value and the registration are visible as soon as the call
// returns.
//
// # Example Usage
//
//	reg := optimistic.NewRegistry(
//	    optimistic.WithNotifier(toast.NewNotifier(hub)),
//	)
//
//	likes, err := optimistic.Execute(ctx, reg, optimistic.Update[int, int]{
//	    Label:    "like",
//	    Snapshot: func() int { return board.Get(postID) },
//	    Apply:    func() int { return board.Add(postID, 1) },
//	    Confirm: func(ctx context.Context) (int, error) {
//	        return api.Like(ctx, postID)
//	    },
//	    Revert: func(prev int) { board.Set(postID, prev) },
//	})
//
// # Grouping
//
// IsPending matches action IDs by substring. Labels are embedded in IDs, so
// callers group related work by sharing a label:
//
//	if reg.IsPending("like") {
//	    // disable the like button
//	}
//
// # Cancellation
//
// The context passed to Start is handed to Confirm unchanged. The registry
// never cancels a confirmation and has no timeout of its own; a Confirm that
// wants one must implement it and report it as an error.
package optimistic
