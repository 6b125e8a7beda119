// Package paging plans page-fetch jobs for a batch and decides, after every
// fetched page, whether a job needs another page.
//
// # Planning
//
// When the data source reports a total record count the batch is split into
// ceil(total / maxPageSize) jobs up front. Otherwise a single job is planned
// and the real page count is discovered lazily.
//
// # Continuation
//
// Next implements the per-page state machine:
//
//	onBatchCreated -> onFetchedAllPayloads | onEmptyLastRequest | onFilledLastRequest | Failed
//
// onFilledLastRequest is the only non-terminal outcome: the job advances its
// start index by one and fetches again. Pages of one job must be fetched in
// increasing start index order for the decision to hold.
package paging
