package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func leg(owner, given, received byte, givenAmt, receivedAmt string) SwapLeg {
	return SwapLeg{
		Owner:          pk(owner),
		GivenToken:     pk(given),
		GivenAmount:    dec(givenAmt),
		ReceivedToken:  pk(received),
		ReceivedAmount: dec(receivedAmt),
	}
}

func TestMatchLegs_RoundTripExample(t *testing.T) {
	// A: {X: +100, Y: -50}，B: {X: -100, Y: +60}
	// 只有 (X, 100) 两侧齐备：B 给出、A 接收 → 唯一一条边 B→A
	legA := leg(2, 11, 10, "50", "100") // A 给出 Y 50，接收 X 100
	legB := leg(3, 10, 11, "100", "60") // B 给出 X 100，接收 Y 60

	edges := MatchLegs([]SwapLeg{legA, legB})
	assert.Len(t, edges, 1)
	assert.Equal(t, pk(3), edges[0].Source)
	assert.Equal(t, pk(2), edges[0].Dest)
}

func TestMatchLegs_ExactAmountRequired(t *testing.T) {
	// 金额差一丁点都不配对（精确 decimal 相等，无容差）
	legA := leg(2, 11, 10, "50", "100.000001")
	legB := leg(3, 10, 11, "100", "60")

	edges := MatchLegs([]SwapLeg{legA, legB})
	assert.Empty(t, edges)
}

func TestMatchLegs_SelfReferentialLegIsSelfLoop(t *testing.T) {
	// 同一 owner 的流出与流入恰好落在同一 (mint, 金额) 上 → 自环边
	selfLeg := leg(2, 10, 10, "5", "5")

	edges := MatchLegs([]SwapLeg{selfLeg})
	assert.Len(t, edges, 1)
	assert.Equal(t, edges[0].Source, edges[0].Dest)
}

func TestMatchLegs_CoincidentalAmountCollision(t *testing.T) {
	// 已知局限：两条互不相关的腿碰巧共享 (mint, 金额) 时会被误配。
	// C 给出 X 100 与 A 接收 X 100 没有任何物理关联，但仍产出边 C→A。
	legA := leg(2, 11, 10, "50", "100")
	legC := leg(4, 10, 12, "100", "7")

	edges := MatchLegs([]SwapLeg{legA, legC})
	assert.Len(t, edges, 1)
	assert.Equal(t, pk(4), edges[0].Source)
	assert.Equal(t, pk(2), edges[0].Dest)
}

func TestMatchLegs_SameSideOverwrite(t *testing.T) {
	// 同一 key 同侧被多条腿写入时，后写覆盖先写
	legB1 := leg(3, 10, 11, "100", "60")
	legB2 := leg(4, 10, 12, "100", "70") // 同样给出 X 100，覆盖 giver
	legA := leg(2, 11, 10, "50", "100")

	edges := MatchLegs([]SwapLeg{legB1, legB2, legA})
	assert.Len(t, edges, 1)
	assert.Equal(t, pk(4), edges[0].Source)
	assert.Equal(t, pk(2), edges[0].Dest)
}

func TestMatchLegs_DeterministicEdgeOrder(t *testing.T) {
	// P: {A: -30, B: +30}，Q: {B: -30, A: +30} → 两条边，顺序确定
	legP := leg(2, 10, 11, "30", "30")
	legQ := leg(3, 11, 10, "30", "30")

	for i := 0; i < 10; i++ {
		edges := MatchLegs([]SwapLeg{legP, legQ})
		assert.Len(t, edges, 2)
		// key 首次出现顺序：P 的流出 (A,30) 先注册
		assert.Equal(t, TransferEdge{Source: pk(2), Dest: pk(3)}, edges[0])
		assert.Equal(t, TransferEdge{Source: pk(3), Dest: pk(2)}, edges[1])
	}
}
