// Package printing turns invoice documents into PDF files.
//
// Two engines implement document.PDFRenderer:
//   - NativeRenderer draws the page with gofpdf and needs nothing installed
//   - ChromeRenderer prints the HTML page through Chrome DevTools, either a
//     local headless browser or a remote one (DOCUMENT_CHROME_URL)
//
// NewPDFRenderer picks one from config.DocumentConfig.
package printing
