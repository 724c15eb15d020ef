package discovery

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/indexing/filter"
)

const (
	factoryA = "0x00000000000000000000000000000000000000fa"
	factoryB = "0x00000000000000000000000000000000000000fb"
	broken   = "0x00000000000000000000000000000000000000ff"

	campaign1 = "0x1111111111111111111111111111111111111111"
	campaign2 = "0x2222222222222222222222222222222222222222"
	source1   = "0x5555555555555555555555555555555555555555"
)

type mockExplorer struct {
	logs  map[string][]domain.EventLog
	calls int
}

func (m *mockExplorer) Logs(ctx context.Context, address string) ([]domain.EventLog, error) {
	m.calls++
	if address == broken {
		return nil, errors.New("connection reset")
	}
	return m.logs[address], nil
}

func (m *mockExplorer) Transactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	return nil, nil
}

func (m *mockExplorer) GetChainID() domain.ChainID {
	return domain.ChainIDBase
}

func word(addr string) string {
	return strings.Repeat("0", 24) + strings.TrimPrefix(addr, "0x")
}

func topicFor(addr string) string {
	return "0x" + word(addr)
}

func testFilter() (*filter.TopicFilter, string, string) {
	f := filter.NewTopicFilter()
	plain := f.AddSignature("CampaignCreated(address,address)", false)
	rich := f.AddSignature("CampaignCreated(address,address,uint256,address)", true)
	return f, plain.Topic.Hex(), rich.Topic.Hex()
}

func fixture() *mockExplorer {
	_, plain, rich := testFilter()
	zeroWord := strings.Repeat("0", 64)
	return &mockExplorer{logs: map[string][]domain.EventLog{
		factoryA: {
			{Topics: []string{plain, topicFor(campaign1)}, BlockNumber: 10},
			// unrelated event
			{Topics: []string{"0x" + strings.Repeat("ab", 32), topicFor(campaign2)}, BlockNumber: 11},
			// zero campaign address
			{Topics: []string{plain, "0x" + zeroWord}, BlockNumber: 12},
		},
		factoryB: {
			{Topics: []string{rich, topicFor(campaign1)}, Data: "0x" + zeroWord + zeroWord + word(source1), BlockNumber: 20},
			{Topics: []string{rich, topicFor(campaign2)}, Data: "0x" + zeroWord + zeroWord + zeroWord, BlockNumber: 21},
		},
	}}
}

func TestDiscover(t *testing.T) {
	f, _, _ := testFilter()
	exp := fixture()
	d := New(exp, f, nil)

	res := d.Discover(context.Background(), []string{factoryA, broken, factoryB})

	if len(res.Degraded) != 1 || res.Degraded[0].Campaign != broken {
		t.Fatalf("expected broken factory degraded, got %+v", res.Degraded)
	}
	if len(res.Campaigns) != 2 {
		t.Fatalf("expected 2 campaigns, got %d: %+v", len(res.Campaigns), res.Campaigns)
	}

	c1 := res.Campaigns[0]
	if c1.Address != campaign1 || c1.Factory != factoryA || c1.DiscoveredBlock != 10 {
		t.Errorf("unexpected first sighting: %+v", c1)
	}
	if c1.ContentSource != source1 {
		t.Errorf("expected content source filled from later sighting, got %q", c1.ContentSource)
	}

	c2 := res.Campaigns[1]
	if c2.Address != campaign2 || c2.ContentSource != "" {
		t.Errorf("zero content source must be discarded: %+v", c2)
	}
}

func TestDiscover_Idempotent(t *testing.T) {
	f, _, _ := testFilter()
	d := New(fixture(), f, nil)
	factories := []string{factoryA, factoryB}

	first := d.Discover(context.Background(), factories)
	second := d.Discover(context.Background(), factories)

	if !reflect.DeepEqual(first.Campaigns, second.Campaigns) {
		t.Errorf("discovery not idempotent:\n%+v\n%+v", first.Campaigns, second.Campaigns)
	}
}

func TestSet_KeepsFirstContentSource(t *testing.T) {
	s := NewSet()
	s.Add(domain.OnChainCampaign{ChainID: "1", Address: campaign1, ContentSource: source1})
	s.Add(domain.OnChainCampaign{ChainID: "1", Address: strings.ToUpper(campaign1), ContentSource: "0x9999999999999999999999999999999999999999"})
	s.Add(domain.OnChainCampaign{ChainID: "137", Address: campaign1})

	if s.Len() != 2 {
		t.Fatalf("expected 2 campaigns (per chain), got %d", s.Len())
	}
	if got := s.List()[0].ContentSource; got != source1 {
		t.Errorf("content source overwritten: %s", got)
	}
}

func TestTopN(t *testing.T) {
	campaigns := []domain.OnChainCampaign{
		{Address: "a", DiscoveredBlock: 5},
		{Address: "b", DiscoveredBlock: 30},
		{Address: "c", DiscoveredBlock: 10},
	}

	tests := []struct {
		name     string
		n        int
		expected []string
	}{
		{"all", 0, []string{"a", "b", "c"}},
		{"more than len", 10, []string{"a", "b", "c"}},
		{"top two", 2, []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopN(campaigns, tt.n)
			var addrs []string
			for _, c := range got {
				addrs = append(addrs, c.Address)
			}
			if !reflect.DeepEqual(addrs, tt.expected) {
				t.Errorf("TopN(%d) = %v, want %v", tt.n, addrs, tt.expected)
			}
		})
	}
}
