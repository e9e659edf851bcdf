// Package chrono parses and validates GEDCOM date payloads.
//
// A payload passes through four states: RAW_TEXT, TOKENIZED (lexed and
// matched against the date grammar), CALENDAR_RESOLVED (calendar and
// month names bound to registry definitions) and VALIDATED (year, epoch
// and day checked against the calendar). Any failure is an
// *InvalidDateError.
//
//	[calendar] [[day] month] year [epoch]
//	ABT|CAL|EST date
//	BEF|AFT date
//	BET date AND date
//	FROM date [TO date]
//	TO date
//
// A trailing "(phrase)" may accompany a date but never replaces it.
package chrono
