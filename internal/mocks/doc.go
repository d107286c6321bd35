// Package mocks holds gomock doubles for the alerter collaborators.
package mocks

//go:generate mockgen -destination=mock_source.go -package=mocks github.com/ogulcanaydogan/fee-guardian/pkg/alerter Source
//go:generate mockgen -destination=mock_notifier.go -package=mocks github.com/ogulcanaydogan/fee-guardian/pkg/alerts Notifier
