package services

import (
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/internal/domain/flow"
)

func testDef() *flow.Definition {
	return &flow.Definition{
		Kind:        "stylemall",
		Name:        "StyleMall",
		TriggerDays: []int{11, 25},
		DayLabels:   map[int]string{11: "regular", 25: "mid-month"},
		Steps: []flow.Step{
			{Role: "settlement_owner", UserID: "U_OWNER", Template: "Has the payment draft for {title} been registered?", Done: "Draft registration complete"},
			{Role: "finance_lead", UserID: "U_LEAD", Template: "Requesting approval for {title}.", Done: "Lead approval complete"},
			{Role: "finance_manager", UserID: "U_FIN", Template: "Requesting transfer for {title}.", Done: "Transfer registration complete"},
		},
	}
}

func testDeadline() *flow.DeadlineDefinition {
	return &flow.DeadlineDefinition{
		Company:         "acmelabs",
		Name:            "Acme Labs",
		Owners:          []string{"U_OWNER", "U_LEAD"},
		TransferManager: "U_FIN",
		DefaultWeekday:  time.Thursday,
		FallbackWeekday: time.Wednesday,
		Exceptions:      map[string]flow.DeadlineException{},
	}
}

func testRegistry() *flow.Registry {
	return flow.NewRegistry([]*flow.Definition{testDef()}, []*flow.DeadlineDefinition{testDeadline()})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:                "3001",
		FinanceChannelID:    "CFIN",
		TestChannelID:       "CTEST",
		Timezone:            "UTC",
		Location:            time.UTC,
		ReminderCooldown:    12 * time.Hour,
		AfternoonCutoffHour: 12,
		AlertScanLimit:      50,
		IncompleteScanLimit: 200,
		CronSpec:            "0 9 * * *",
	}
}

// clickCallback builds the interaction Slack sends when a button on the
// message at ts is pressed.
func clickCallback(userID, channel, ts, rootTs, actionID, value string) *slackapi.InteractionCallback {
	cb := &slackapi.InteractionCallback{
		Type: slackapi.InteractionTypeBlockActions,
		User: slackapi.User{ID: userID, Name: "tester"},
	}
	cb.Container.ChannelID = channel
	cb.Container.MessageTs = ts
	cb.Message.Timestamp = ts
	if rootTs != ts {
		cb.Message.ThreadTimestamp = rootTs
	}
	cb.ActionCallback.BlockActions = []*slackapi.BlockAction{
		{ActionID: actionID, Value: value},
	}
	return cb
}

// rawButton builds an action block with an arbitrary button value.
func rawButton(actionID, value string) []slackapi.Block {
	button := slackapi.NewButtonBlockElement(actionID, value,
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Done", false, false))
	return []slackapi.Block{slackapi.NewActionBlock("", button)}
}

// settlementButton builds the action block a settlement prompt carries.
func settlementButton(kind string, step int, period flow.Period, title string) []slackapi.Block {
	payload := flow.ActionPayload{Kind: kind, Step: step, Period: period.String(), Title: title}
	button := slackapi.NewButtonBlockElement(flow.ActionIDSettlementApprove, payload.Encode(),
		slackapi.NewTextBlockObject(slackapi.PlainTextType, "Done", false, false))
	return []slackapi.Block{slackapi.NewActionBlock("", button)}
}
