// Package main provides the entry point of inkpress, the backend of a multilingual blog.
// It serves the public content API and the JWT protected admin API with fiber, releases
// scheduled posts on a fixed cadence and asks the frontend to revalidate the affected
// pages. Posts, accounts, settings, media and analytics events are stored with gorm in
// MySQL, PostgreSQL or SQLite.
package main
