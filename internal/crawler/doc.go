// Package crawler discovers bond detail pages from the paginated MOT listings
// and turns each detail page into an instrument record. Requests are issued
// one at a time with a fixed pause between them.
package crawler
