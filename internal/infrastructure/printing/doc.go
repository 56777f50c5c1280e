// Package printing renders invoices as PDF documents.
//
// An invoice is first laid out as HTML with html/template, amounts being
// formatted for the configured locale, then printed by a headless Chrome
// driven through the DevTools protocol. DocumentPublisher stores the result
// under invoices/<reference>.pdf in a DocumentStore.
package printing
