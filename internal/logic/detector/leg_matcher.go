package detector

import (
	"arb-indexer-sol/internal/types"
)

// TransferEdge 表示一条有向转移边：Source 的流出腿与 Dest 的流入腿
// 在 mint 与金额上完全对齐。
type TransferEdge struct {
	Source types.Pubkey
	Dest   types.Pubkey
}

// transferKey 以 (mint, |金额|) 标识一次转移。金额用换算后 decimal 的
// 规范字符串表示，保证精确相等比较（而非浮点近似）。
type transferKey struct {
	token  types.Pubkey
	amount string
}

// transferSlot 记录某 transferKey 两侧的 owner：给出方与接收方。
// 同侧重复写入时后写覆盖先写。
type transferSlot struct {
	giver       types.Pubkey
	receiver    types.Pubkey
	hasGiver    bool
	hasReceiver bool
}

// MatchLegs 将不同 owner 的兑换腿按 (mint, 金额) 配对为有向转移边。
// 每条腿写入两个 key：流出侧写 giver，流入侧写 receiver；
// 两侧都被填上的 key 产出一条边，产出顺序为 key 首次出现顺序。
//
// 注意：按 (mint, 精确金额) 配对只是"同一笔物理转移"的启发式代理，
// 同一交易内两条无关腿恰好撞上相同 mint 与金额时会误配。
// 这是模型接受的近似，不在此处修正。
func MatchLegs(legs []SwapLeg) []TransferEdge {
	slots := make(map[transferKey]*transferSlot, len(legs)*2)
	keyOrder := make([]transferKey, 0, len(legs)*2)

	slotFor := func(key transferKey) *transferSlot {
		s, ok := slots[key]
		if !ok {
			s = &transferSlot{}
			slots[key] = s
			keyOrder = append(keyOrder, key)
		}
		return s
	}

	for i := range legs {
		leg := &legs[i]

		given := slotFor(transferKey{token: leg.GivenToken, amount: leg.GivenAmount.String()})
		given.giver = leg.Owner
		given.hasGiver = true

		received := slotFor(transferKey{token: leg.ReceivedToken, amount: leg.ReceivedAmount.String()})
		received.receiver = leg.Owner
		received.hasReceiver = true
	}

	edges := make([]TransferEdge, 0, len(keyOrder))
	for _, key := range keyOrder {
		s := slots[key]
		if s.hasGiver && s.hasReceiver {
			edges = append(edges, TransferEdge{Source: s.giver, Dest: s.receiver})
		}
	}
	return edges
}
