package mq

import (
	"fmt"

	"arb-indexer-sol/internal/logic/core"
	"arb-indexer-sol/internal/utils"

	"github.com/sugawarayuuta/sonnet"
)

// ArbRecordMsg 是下游消费的单条套利记录（JSON 编码）。
// Amount 使用十进制字符串，避免下游语言的浮点精度问题。
type ArbRecordMsg struct {
	Signature   string `json:"signature"`
	Beneficiary string `json:"beneficiary"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
}

// ArbBatchPayload 是按 slot + partition 聚合后的消息体。
type ArbBatchPayload struct {
	Slot      uint64         `json:"slot"`
	BlockTime int64          `json:"blockTime"`
	Records   []ArbRecordMsg `json:"records"`
}

// BuildRecordJobs 将一个 slot 的套利记录按受益人哈希分区，聚合为 Kafka 消息。
// 同一受益人的记录始终落在同一分区，下游可按受益人做有序消费。
func BuildRecordJobs(
	topic string,
	partitions int,
	slot uint64,
	blockTime int64,
	records []*core.ArbitrageRecord,
) ([]*KafkaJob, error) {
	if len(records) == 0 {
		return nil, nil
	}

	grouped := make(map[int32][]ArbRecordMsg)
	for _, r := range records {
		partition := int32(utils.PartitionHashBytes(r.Beneficiary[:], uint32(partitions)))
		grouped[partition] = append(grouped[partition], ArbRecordMsg{
			Signature:   r.Signature,
			Beneficiary: r.Beneficiary.String(),
			Token:       r.Token.String(),
			Amount:      r.Amount.String(),
		})
	}

	jobs := make([]*KafkaJob, 0, len(grouped))
	for partition, msgs := range grouped {
		payload := ArbBatchPayload{
			Slot:      slot,
			BlockTime: blockTime,
			Records:   msgs,
		}
		value, err := sonnet.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal arb batch failed: slot=%d partition=%d err=%w", slot, partition, err)
		}
		jobs = append(jobs, &KafkaJob{
			Topic:     topic,
			Partition: partition,
			Value:     value,
		})
	}
	return jobs, nil
}
