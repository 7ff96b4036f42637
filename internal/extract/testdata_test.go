package extract

import (
	"strings"
	"time"

	"github.com/shineum/mailticket/internal/ticket"
)

var fixedNow = time.Date(2026, time.March, 4, 15, 30, 0, 0, time.UTC)

var fixedClock = ClockFunc(func() time.Time { return fixedNow })

const outlookBody = "Hi Team,\n\n" +
	"The CK Alumni portal throws an error when members try to update their profile. " +
	"The page shows a blank screen after clicking save. " +
	"About forty users have reported it since this morning. " +
	"Kindly look into this at the earliest."

var outlookEmail = strings.Join([]string{
	"From: Priya Raman <priya.raman@hepl.com>",
	"Sent: Friday, July 11, 2025 1:14 PM",
	"To: L3 Support <l3support@hepl.com>; Arun Kumar <Arun.Kumar@hepl.com>",
	"Cc: Helpdesk <helpdesk@hepl.com>",
	"Subject: Urgnt isue with CK Alumi portal",
	"",
	outlookBody,
	"",
	"Thanks & Regards,",
	"Priya Raman",
	"Employee ID: 1015796",
	"Mobile: 98765 432100",
	"",
	"Confidentiality Notice: This e-mail is intended only for the addressee.",
}, "\r\n")

var registry = []ticket.Contributor{
	{ID: 1, Name: "Arun Kumar", Email: "arun.kumar@hepl.com", Active: true},
	{ID: 2, Name: "Meena Iyer", Email: "meena.iyer@hepl.com", Active: true},
	{ID: 3, Name: "Karthik S", Email: "karthik.s@hepl.com", Active: false},
}
