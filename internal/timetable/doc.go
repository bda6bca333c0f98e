// Package timetable holds the pure helpers used to turn user input into
// service queries and service data into display values: station slugs,
// relative dates, platform numbers, train names, seat classes and countries.
package timetable
