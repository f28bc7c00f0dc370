package profile

import (
	"math"
	"testing"
	"time"

	"github.com/savegress/payguard/internal/config"
	"github.com/savegress/payguard/pkg/models"
	"github.com/shopspring/decimal"
)

func testProfilesConfig() config.ProfilesConfig {
	return config.Default().Profiles
}

func historyTxn(userID string, amount int64, ts time.Time, ch models.PaymentChannel) *models.Transaction {
	return &models.Transaction{
		UserID:    userID,
		Amount:    decimal.NewFromInt(amount),
		Timestamp: ts,
		Channel:   ch,
		Destination: &models.DeliveryAddress{
			Country:  "BD",
			Region:   "dhaka",
			Location: &models.GeoPoint{Lat: 23.81, Lng: 90.41},
		},
	}
}

func TestBuilder_EmptyCorpus(t *testing.T) {
	b := NewBuilder(testProfilesConfig())

	result := b.Build(nil, nil)

	if len(result.Profiles) != 0 {
		t.Errorf("expected no profiles, got %d", len(result.Profiles))
	}
	if result.Statistics == nil || result.Statistics.TransactionCount != 0 {
		t.Error("expected empty statistics, not nil")
	}
	if len(result.ChannelRisk) != len(models.AllChannels()) {
		t.Errorf("expected priors for all channels, got %d entries", len(result.ChannelRisk))
	}
	if len(result.RegionRisk) == 0 {
		t.Error("expected static region priors")
	}
}

func TestBuilder_DegenerateProfile(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	user := &models.User{ID: "user-new", RegisteredAt: time.Now()}

	result := b.Build([]*models.User{user}, nil)

	prof := result.Profiles["user-new"]
	if prof == nil {
		t.Fatal("expected a profile even for a user with no history")
	}
	if !prof.Degenerate() {
		t.Error("expected degenerate profile")
	}
	if prof.AvgAmount != 0 || prof.StdDevAmount != 0 {
		t.Error("degenerate profile must carry zero amount statistics")
	}
	if len(prof.PreferredHours) != 0 || len(prof.PreferredChannels) != 0 {
		t.Error("degenerate profile must carry empty preferences")
	}
	if prof.FallbackChannel != models.ChannelCashOnDelivery {
		t.Errorf("expected cash-on-delivery fallback, got %s", prof.FallbackChannel)
	}
}

func TestBuilder_ProfileStatistics(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	user := &models.User{
		ID: "user-1",
		History: []*models.Transaction{
			historyTxn("user-1", 4000, base, models.ChannelBkash),
			historyTxn("user-1", 5000, base.Add(24*time.Hour), models.ChannelBkash),
			historyTxn("user-1", 6000, base.Add(48*time.Hour), models.ChannelCard),
		},
	}

	result := b.Build([]*models.User{user}, user.History)
	prof := result.Profiles["user-1"]

	if prof.TransactionCount != 3 {
		t.Fatalf("expected 3 transactions, got %d", prof.TransactionCount)
	}
	if prof.AvgAmount != 5000 {
		t.Errorf("expected average 5000, got %f", prof.AvgAmount)
	}
	wantStdDev := math.Sqrt(2000000.0 / 3.0)
	if math.Abs(prof.StdDevAmount-wantStdDev) > 1e-6 {
		t.Errorf("expected stddev %f, got %f", wantStdDev, prof.StdDevAmount)
	}
	if len(prof.PreferredChannels) != 2 {
		t.Fatalf("expected 2 preferred channels, got %d", len(prof.PreferredChannels))
	}
	if prof.PreferredChannels[0] != models.ChannelBkash {
		t.Errorf("expected bkash first by frequency, got %s", prof.PreferredChannels[0])
	}
	if prof.AvgAmountByChannel[models.ChannelBkash] != 4500 {
		t.Errorf("expected bkash channel average 4500, got %f", prof.AvgAmountByChannel[models.ChannelBkash])
	}
	if prof.AvgAmountByChannel[models.ChannelCard] != 6000 {
		t.Errorf("expected card channel average 6000, got %f", prof.AvgAmountByChannel[models.ChannelCard])
	}
	if len(prof.CommonLocations) != 1 {
		t.Errorf("expected one location cluster, got %d", len(prof.CommonLocations))
	}
}

func TestBuilder_PreferredHours_TieBrokenByFirstSeen(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// hours 9, 14, 20, 11 each seen once; 9 appears twice
	history := []*models.Transaction{
		historyTxn("u", 1000, day.Add(9*time.Hour), models.ChannelBkash),
		historyTxn("u", 1000, day.Add(14*time.Hour), models.ChannelBkash),
		historyTxn("u", 1000, day.Add(20*time.Hour), models.ChannelBkash),
		historyTxn("u", 1000, day.Add(24*time.Hour).Add(11*time.Hour), models.ChannelBkash),
		historyTxn("u", 1000, day.Add(48*time.Hour).Add(9*time.Hour), models.ChannelBkash),
	}
	user := &models.User{ID: "u", History: history}

	prof := b.Build([]*models.User{user}, history).Profiles["u"]

	if len(prof.PreferredHours) != 3 {
		t.Fatalf("expected top-3 hours, got %v", prof.PreferredHours)
	}
	if prof.PreferredHours[0] != 9 {
		t.Errorf("expected hour 9 first (highest frequency), got %v", prof.PreferredHours)
	}
	// among the tied hours, first-seen order wins
	if prof.PreferredHours[1] != 14 || prof.PreferredHours[2] != 20 {
		t.Errorf("expected tie broken by first-seen order (14 then 20), got %v", prof.PreferredHours)
	}
}

func TestBuilder_HistoryFromCorpusWhenUserCarriesNone(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	txns := []*models.Transaction{
		historyTxn("user-1", 2000, base, models.ChannelNagad),
		historyTxn("user-1", 3000, base.Add(time.Hour), models.ChannelNagad),
	}
	user := &models.User{ID: "user-1"} // no embedded history

	prof := b.Build([]*models.User{user}, txns).Profiles["user-1"]

	if prof.TransactionCount != 2 {
		t.Errorf("expected history gathered from the corpus, got count %d", prof.TransactionCount)
	}
	if prof.AvgAmount != 2500 {
		t.Errorf("expected average 2500, got %f", prof.AvgAmount)
	}
}

func TestBuilder_ChannelRiskAdapts(t *testing.T) {
	cfg := testProfilesConfig()
	b := NewBuilder(cfg)
	base := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC) // 2am: outside day band

	// 60 cash-on-delivery transactions, all at a high-risk hour
	var txns []*models.Transaction
	for i := 0; i < 60; i++ {
		txns = append(txns, historyTxn("u", 1000, base.Add(time.Duration(i)*24*time.Hour), models.ChannelCashOnDelivery))
	}

	result := b.Build(nil, txns)

	// indicator rate 1.0 -> min(2.0, cap) = cap
	if got := result.ChannelRisk[models.ChannelCashOnDelivery]; got != cfg.MaxChannelRisk {
		t.Errorf("expected adapted risk at cap %f, got %f", cfg.MaxChannelRisk, got)
	}
}

func TestBuilder_ChannelRiskKeepsPriorBelowFloor(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)

	// only 10 observations: below the adjustment floor
	var txns []*models.Transaction
	for i := 0; i < 10; i++ {
		txns = append(txns, historyTxn("u", 1000, base.Add(time.Duration(i)*time.Hour), models.ChannelCard))
	}

	result := b.Build(nil, txns)

	if got, want := result.ChannelRisk[models.ChannelCard], ChannelPriors()[models.ChannelCard]; got != want {
		t.Errorf("expected prior %f to survive below the observation floor, got %f", want, got)
	}
}

func TestBuilder_ChannelRiskCleanCorpusDropsToZero(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) // daytime, in-country, modest amounts

	var txns []*models.Transaction
	for i := 0; i < 80; i++ {
		txns = append(txns, historyTxn("u", 1500, base.Add(time.Duration(i)*24*time.Hour), models.ChannelBkash))
	}

	result := b.Build(nil, txns)

	if got := result.ChannelRisk[models.ChannelBkash]; got != 0 {
		t.Errorf("expected zero adapted risk for a clean corpus, got %f", got)
	}
}

func TestRiskPriors_Bounds(t *testing.T) {
	for ch, risk := range ChannelPriors() {
		if risk < 0 || risk > 0.8 {
			t.Errorf("channel prior %s=%f outside [0,0.8]", ch, risk)
		}
	}
	for region, risk := range RegionPriors() {
		if risk < 0 || risk > 1 {
			t.Errorf("region prior %s=%f outside [0,1]", region, risk)
		}
	}
}

func TestBuilder_SkipsNilCorpusEntries(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	users := []*models.User{
		nil,
		{ID: "user-1", RegisteredAt: base.AddDate(-1, 0, 0)},
	}
	txns := []*models.Transaction{
		nil,
		historyTxn("user-1", 3000, base, models.ChannelBkash),
	}

	result := b.Build(users, txns)

	if len(result.Profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(result.Profiles))
	}
	prof := result.Profiles["user-1"]
	if prof == nil || prof.TransactionCount != 1 {
		t.Errorf("expected the surviving user profiled from the surviving transaction, got %+v", prof)
	}
	if result.Statistics.TransactionCount != 1 {
		t.Errorf("expected the nil transaction excluded from statistics, got %d", result.Statistics.TransactionCount)
	}
}

func TestBuilder_SkipsNilHistoryEntries(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{
		ID:           "user-1",
		RegisteredAt: base.AddDate(-1, 0, 0),
		History: []*models.Transaction{
			historyTxn("user-1", 3000, base, models.ChannelBkash),
			nil,
		},
	}

	result := b.Build([]*models.User{user}, nil)
	if prof := result.Profiles["user-1"]; prof == nil || prof.TransactionCount != 1 {
		t.Errorf("expected 1 counted transaction, got %+v", result.Profiles["user-1"])
	}
}

func TestBuilder_VelocityIgnoresCorpusOrder(t *testing.T) {
	b := NewBuilder(testProfilesConfig())
	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	// a three-transaction burst plus a straggler a month later
	ordered := []*models.Transaction{
		historyTxn("user-1", 1000, base, models.ChannelBkash),
		historyTxn("user-1", 1000, base.Add(10*time.Minute), models.ChannelBkash),
		historyTxn("user-1", 1000, base.Add(20*time.Minute), models.ChannelBkash),
		historyTxn("user-1", 1000, base.AddDate(0, 1, 0), models.ChannelBkash),
	}
	shuffled := []*models.Transaction{ordered[3], ordered[1], ordered[0], ordered[2]}

	user := &models.User{ID: "user-1", RegisteredAt: base.AddDate(-1, 0, 0)}

	fromOrdered := b.Build([]*models.User{user}, ordered).Profiles["user-1"].Velocity
	fromShuffled := b.Build([]*models.User{user}, shuffled).Profiles["user-1"].Velocity

	if fromOrdered != fromShuffled {
		t.Errorf("velocity must not depend on corpus order: %+v vs %+v", fromOrdered, fromShuffled)
	}
	if fromShuffled.MaxHourly != 3 {
		t.Errorf("expected the burst counted as 3 in an hour, got %d", fromShuffled.MaxHourly)
	}
}
