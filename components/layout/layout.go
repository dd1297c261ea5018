// Package layout holds the page shell shared by every view.
package layout

// htmxConfig lets 429 bodies swap so rate-limit errors show inline.
const htmxConfig = `{"responseHandling":[{"code":"204","swap":false},{"code":"429","swap":true},` +
	`{"code":"[23]..","swap":true},{"code":"[45]..","swap":false,"error":true}]}`
