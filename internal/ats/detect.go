// Package ats detects which applicant tracking system serves a career page
// and drives the application form end to end: field mapping, screening
// questions, resume upload, submission, and outcome verification.
package ats

import "strings"

// Vendor names a supported applicant tracking system.
type Vendor string

const (
	VendorGreenhouse      Vendor = "greenhouse"
	VendorLever           Vendor = "lever"
	VendorWorkday         Vendor = "workday"
	VendorAshby           Vendor = "ashby"
	VendorSmartRecruiters Vendor = "smartrecruiters"
	VendorBambooHR        Vendor = "bamboohr"
	VendorICIMS           Vendor = "icims"
	VendorJobvite         Vendor = "jobvite"
	VendorRecruitee       Vendor = "recruitee"
	VendorBreezy          Vendor = "breezy"
	VendorApplyToJob      Vendor = "applytojob"
	VendorDover           Vendor = "dover"
	VendorRippling        Vendor = "rippling"
	VendorGeneric         Vendor = "generic"
)

// atsPatterns maps URL substrings to vendors. Order matters: the specific
// greenhouse board hosts must be tried before the bare domain.
var atsPatterns = []struct {
	substr string
	vendor Vendor
}{
	{"boards.greenhouse.io", VendorGreenhouse},
	{"job-boards.greenhouse.io", VendorGreenhouse},
	{"grnh.se", VendorGreenhouse},
	{"greenhouse.io", VendorGreenhouse},
	{"jobs.lever.co", VendorLever},
	{"lever.co", VendorLever},
	{"myworkdayjobs.com", VendorWorkday},
	{"ashbyhq.com", VendorAshby},
	{"jobs.ashby.com", VendorAshby},
	{"smartrecruiters.com", VendorSmartRecruiters},
	{"bamboohr.com", VendorBambooHR},
	{"icims.com", VendorICIMS},
	{"jobvite.com", VendorJobvite},
	{"recruitee.com", VendorRecruitee},
	{"breezy.hr", VendorBreezy},
	{"applytojob.com", VendorApplyToJob},
	{"dover.com", VendorDover},
	{"rippling.com", VendorRippling},
}

// Detect classifies a URL by ATS vendor. Unknown hosts are generic, which
// still gets a best-effort form fill.
func Detect(url string) Vendor {
	lowered := strings.ToLower(url)
	for _, p := range atsPatterns {
		if strings.Contains(lowered, p.substr) {
			return p.vendor
		}
	}
	return VendorGeneric
}

// jobBoards are aggregators that require a logged-in account to apply.
// Landing on one of these after redirect resolution means the application
// cannot proceed automatically.
var jobBoards = []string{"linkedin.com", "indeed.com", "glassdoor.com", "remoteok.com", "remoteok.io"}

// IsJobBoard reports whether the URL belongs to a login-walled aggregator
// rather than a company career page.
func IsJobBoard(url string) bool {
	lowered := strings.ToLower(url)
	for _, board := range jobBoards {
		if strings.Contains(lowered, board) {
			return true
		}
	}
	return false
}

// BoardName returns the display name of the aggregator a URL belongs to.
func BoardName(url string) string {
	lowered := strings.ToLower(url)
	for _, name := range []string{"LinkedIn", "Indeed", "Glassdoor", "RemoteOK"} {
		if strings.Contains(lowered, strings.ToLower(name)) {
			return name
		}
	}
	return "this job board"
}
